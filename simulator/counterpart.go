package simulator

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kilianp07/simbridge/core/logger"
	"github.com/kilianp07/simbridge/core/model"
	"github.com/kilianp07/simbridge/infra/codec"
	"github.com/kilianp07/simbridge/infra/listener"
)

// Config wires the counterpart to a running pipeline.
type Config struct {
	// CommandAddress is where the counterpart listens for egress commands.
	CommandAddress string `json:"command_address"`
	// SensorAddress is the pipeline's datagram listener.
	SensorAddress string `json:"sensor_address"`
	// LiDARAddress is the pipeline's stream listener. Empty disables it.
	LiDARAddress  string        `json:"lidar_address"`
	CommandCodec  string        `json:"command_codec"`
	SensorCodec   string        `json:"sensor_codec"`
	Interval      time.Duration `json:"interval"`
	LiDARInterval time.Duration `json:"lidar_interval"`
	LiDARPoints   int           `json:"lidar_points"`
	// TimeScale multiplies the simulated step; 2 runs twice as fast as
	// wall clock.
	TimeScale float64        `json:"time_scale"`
	Start     model.Waypoint `json:"start"`
	StartYaw  float64        `json:"start_yaw"`
	Params    Params         `json:"params"`
}

// SetDefaults fills zero values.
func (c *Config) SetDefaults() {
	if c.CommandAddress == "" {
		c.CommandAddress = "127.0.0.1:23456"
	}
	if c.SensorAddress == "" {
		c.SensorAddress = "127.0.0.1:12345"
	}
	if c.CommandCodec == "" {
		c.CommandCodec = codec.NameMsgPack
	}
	if c.SensorCodec == "" {
		c.SensorCodec = codec.NameJSON
	}
	if c.Interval <= 0 {
		c.Interval = 20 * time.Millisecond
	}
	if c.LiDARInterval <= 0 {
		c.LiDARInterval = 100 * time.Millisecond
	}
	if c.LiDARPoints <= 0 {
		c.LiDARPoints = 64
	}
	if c.TimeScale <= 0 {
		c.TimeScale = 1
	}
	if c.Params == (Params{}) {
		c.Params = DefaultParams()
	}
}

// Counterpart plays the simulator side of the bridge.
type Counterpart struct {
	cfg      Config
	vehicle  *Vehicle
	cmdCodec codec.Codec
	sensor   codec.Codec
	log      logger.Logger

	cmdConn *net.UDPConn
	out     net.Conn

	mu   sync.Mutex
	last model.ControlCommand

	commands atomic.Uint64
	rejected atomic.Uint64
	frames   atomic.Uint64
}

// NewCounterpart binds the command socket and dials the sensor listener.
func NewCounterpart(cfg Config, log logger.Logger) (*Counterpart, error) {
	cfg.SetDefaults()
	cc, err := codec.New(cfg.CommandCodec)
	if err != nil {
		return nil, err
	}
	sc, err := codec.New(cfg.SensorCodec)
	if err != nil {
		return nil, err
	}
	addr, err := net.ResolveUDPAddr("udp", cfg.CommandAddress)
	if err != nil {
		return nil, fmt.Errorf("resolve command address: %w", err)
	}
	cmdConn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen commands: %w", err)
	}
	out, err := net.Dial("udp", cfg.SensorAddress)
	if err != nil {
		_ = cmdConn.Close()
		return nil, fmt.Errorf("dial sensor listener: %w", err)
	}
	return &Counterpart{
		cfg:      cfg,
		vehicle:  NewVehicle(cfg.Params, cfg.Start, cfg.StartYaw),
		cmdCodec: cc,
		sensor:   sc,
		log:      log,
		cmdConn:  cmdConn,
		out:      out,
		last:     model.StopCommand(0),
	}, nil
}

// CommandAddr returns the bound command address.
func (c *Counterpart) CommandAddr() net.Addr { return c.cmdConn.LocalAddr() }

// Vehicle returns the simulated vehicle.
func (c *Counterpart) Vehicle() *Vehicle { return c.vehicle }

// Commands returns how many commands were accepted.
func (c *Counterpart) Commands() uint64 { return c.commands.Load() }

// Rejected returns how many command datagrams failed to decode.
func (c *Counterpart) Rejected() uint64 { return c.rejected.Load() }

// LastCommand returns the most recent command.
func (c *Counterpart) LastCommand() model.ControlCommand {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// Run drives the vehicle until ctx is cancelled. Each tick applies the
// latest command and publishes GNSS, IMU and speed readings.
func (c *Counterpart) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.receive(ctx)
	}()
	if c.cfg.LiDARAddress != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.streamLiDAR(ctx)
		}()
	}
	defer wg.Wait()

	ticker := time.NewTicker(c.cfg.Interval)
	defer ticker.Stop()
	dt := c.cfg.Interval.Seconds() * c.cfg.TimeScale
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			c.vehicle.Step(c.LastCommand(), dt)
			c.publish(c.vehicle.GNSS())
			c.publish(c.vehicle.IMU())
			c.publish(c.vehicle.Speed())
		}
	}
}

func (c *Counterpart) publish(s model.SensorSample) {
	payload, err := codec.EncodeSample(c.sensor, s)
	if err != nil {
		c.log.Errorf("encode %s: %v", s.Kind(), err)
		return
	}
	if _, err := c.out.Write(payload); err != nil {
		c.log.Debugf("send %s: %v", s.Kind(), err)
	}
}

func (c *Counterpart) receive(ctx context.Context) {
	buf := make([]byte, 2048)
	for {
		if ctx.Err() != nil {
			return
		}
		_ = c.cmdConn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
		n, _, err := c.cmdConn.ReadFromUDP(buf)
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			c.log.Warnf("command read: %v", err)
			continue
		}
		cmd, err := codec.DecodeCommand(c.cmdCodec, buf[:n])
		if err != nil {
			c.rejected.Add(1)
			c.log.Warnf("bad command: %v", err)
			continue
		}
		c.mu.Lock()
		c.last = cmd
		c.mu.Unlock()
		c.commands.Add(1)
	}
}

// streamLiDAR sends synthetic point clouds as length-prefixed frames,
// redialling when the pipeline drops the connection.
func (c *Counterpart) streamLiDAR(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.LiDARInterval)
	defer ticker.Stop()
	var conn net.Conn
	defer func() {
		if conn != nil {
			_ = conn.Close()
		}
	}()
	frame := make([]byte, c.cfg.LiDARPoints*16)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if conn == nil {
			var err error
			d := net.Dialer{Timeout: time.Second}
			conn, err = d.DialContext(ctx, "tcp", c.cfg.LiDARAddress)
			if err != nil {
				c.log.Debugf("dial lidar stream: %v", err)
				conn = nil
				continue
			}
		}
		_ = conn.SetWriteDeadline(time.Now().Add(time.Second))
		if err := listener.WriteFrame(conn, frame); err != nil {
			c.log.Warnf("lidar frame: %v", err)
			_ = conn.Close()
			conn = nil
			continue
		}
		c.frames.Add(1)
	}
}

// Frames returns how many LiDAR frames were written.
func (c *Counterpart) Frames() uint64 { return c.frames.Load() }

// Close releases both sockets.
func (c *Counterpart) Close() error {
	return errors.Join(c.cmdConn.Close(), c.out.Close())
}
