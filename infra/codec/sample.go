package codec

import (
	"fmt"

	"github.com/kilianp07/simbridge/core/model"
)

// record is the datagram envelope {type, timestamp, data}. data carries
// the union of every sensor's fields; which ones are required depends on
// type.
type record struct {
	Type      string    `json:"type" msgpack:"type"`
	Timestamp *float64  `json:"timestamp" msgpack:"timestamp"`
	Data      *wireData `json:"data" msgpack:"data"`
}

type wireData struct {
	Latitude      *float64  `json:"latitude,omitempty" msgpack:"latitude,omitempty"`
	Longitude     *float64  `json:"longitude,omitempty" msgpack:"longitude,omitempty"`
	Altitude      *float64  `json:"altitude,omitempty" msgpack:"altitude,omitempty"`
	Heading       *float64  `json:"heading,omitempty" msgpack:"heading,omitempty"`
	Accelerometer []float64 `json:"accelerometer,omitempty" msgpack:"accelerometer,omitempty"`
	Gyroscope     []float64 `json:"gyroscope,omitempty" msgpack:"gyroscope,omitempty"`
	Compass       *float64  `json:"compass,omitempty" msgpack:"compass,omitempty"`
	Speed         *float64  `json:"speed,omitempty" msgpack:"speed,omitempty"`
}

// DecodeSample parses one sensor record. Missing timestamps decode as
// zero. LiDAR is not accepted here since it only arrives over the stream
// ingress.
func DecodeSample(c Codec, payload []byte) (model.SensorSample, error) {
	var rec record
	if err := c.Unmarshal(payload, &rec); err != nil {
		return nil, fmt.Errorf("decode %s record: %w", c.Name(), err)
	}
	if rec.Type == "" {
		return nil, fmt.Errorf("%w: type", model.ErrMissingField)
	}
	kind, err := model.ParseSensorKind(rec.Type)
	if err != nil {
		return nil, err
	}
	if rec.Data == nil {
		return nil, fmt.Errorf("%w: data", model.ErrMissingField)
	}
	var ts float64
	if rec.Timestamp != nil {
		ts = *rec.Timestamp
	}
	d := rec.Data

	switch kind {
	case model.KindGNSS:
		if d.Latitude == nil {
			return nil, fmt.Errorf("%w: data.latitude", model.ErrMissingField)
		}
		if d.Longitude == nil {
			return nil, fmt.Errorf("%w: data.longitude", model.ErrMissingField)
		}
		g := model.GNSS{Timestamp: ts, Latitude: *d.Latitude, Longitude: *d.Longitude, Heading: d.Heading}
		if d.Altitude != nil {
			g.Altitude = *d.Altitude
		}
		return g, nil
	case model.KindIMU:
		if len(d.Accelerometer) != 3 {
			return nil, fmt.Errorf("%w: data.accelerometer needs 3 components", model.ErrMissingField)
		}
		if len(d.Gyroscope) != 3 {
			return nil, fmt.Errorf("%w: data.gyroscope needs 3 components", model.ErrMissingField)
		}
		imu := model.IMU{Timestamp: ts}
		copy(imu.Accelerometer[:], d.Accelerometer)
		copy(imu.Gyroscope[:], d.Gyroscope)
		if d.Compass != nil {
			imu.Compass = *d.Compass
		}
		return imu, nil
	case model.KindSpeed:
		if d.Speed == nil {
			return nil, fmt.Errorf("%w: data.speed", model.ErrMissingField)
		}
		return model.Speed{Timestamp: ts, MetersPerSecond: *d.Speed}, nil
	default:
		return nil, fmt.Errorf("%w: %s is stream-only", model.ErrUnknownSensorType, kind)
	}
}

// EncodeSample renders a sample as a record. It is the inverse of
// DecodeSample and is used by the simulator and the send command.
func EncodeSample(c Codec, s model.SensorSample) ([]byte, error) {
	var rec record
	switch v := s.(type) {
	case model.GNSS:
		rec = record{Type: model.KindGNSS.String(), Timestamp: &v.Timestamp, Data: &wireData{
			Latitude: &v.Latitude, Longitude: &v.Longitude, Altitude: &v.Altitude, Heading: v.Heading,
		}}
	case model.IMU:
		rec = record{Type: model.KindIMU.String(), Timestamp: &v.Timestamp, Data: &wireData{
			Accelerometer: v.Accelerometer[:], Gyroscope: v.Gyroscope[:], Compass: &v.Compass,
		}}
	case model.Speed:
		rec = record{Type: model.KindSpeed.String(), Timestamp: &v.Timestamp, Data: &wireData{Speed: &v.MetersPerSecond}}
	default:
		return nil, fmt.Errorf("%w: cannot encode %T", model.ErrUnknownSensorType, s)
	}
	return c.Marshal(rec)
}

// EncodeCommand serialises a control command as a {steer, throttle,
// brake, timestamp} map.
func EncodeCommand(c Codec, cmd model.ControlCommand) ([]byte, error) {
	return c.Marshal(cmd)
}

// DecodeCommand parses a serialised control command.
func DecodeCommand(c Codec, payload []byte) (model.ControlCommand, error) {
	var cmd model.ControlCommand
	if err := c.Unmarshal(payload, &cmd); err != nil {
		return model.ControlCommand{}, fmt.Errorf("decode %s command: %w", c.Name(), err)
	}
	return cmd, nil
}
