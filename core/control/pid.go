package control

// Gains are the PID coefficients.
type Gains struct {
	Kp float64 `json:"kp"`
	Ki float64 `json:"ki"`
	Kd float64 `json:"kd"`
}

// PID is a textbook proportional-integral-derivative regulator. It is not
// safe for concurrent use.
type PID struct {
	gains     Gains
	integral  float64
	prevError float64
}

// NewPID returns a regulator with zeroed state.
func NewPID(g Gains) *PID {
	return &PID{gains: g}
}

// Gains returns the coefficients.
func (p *PID) Gains() Gains { return p.gains }

// Compute returns the control output for the error setpoint-measured over
// a step of dt seconds. The derivative term is zero when dt <= 0.
func (p *PID) Compute(setpoint, measured, dt float64) float64 {
	e := setpoint - measured
	p.integral += e * dt
	var d float64
	if dt > 0 {
		d = (e - p.prevError) / dt
	}
	p.prevError = e
	return p.gains.Kp*e + p.gains.Ki*p.integral + p.gains.Kd*d
}

// Reset zeroes the accumulated integral and the previous error.
func (p *PID) Reset() {
	p.integral = 0
	p.prevError = 0
}

// State returns the accumulated integral and the previous error.
func (p *PID) State() (integral, prevError float64) {
	return p.integral, p.prevError
}
