// internal/config/durations.go
package config

import "time"

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }

func (h HealthConfig) Interval() time.Duration      { return ms(h.IntervalMs) }
func (h HealthConfig) Timeout() time.Duration       { return ms(h.TimeoutMs) }
func (h HealthConfig) WarmupTimeout() time.Duration { return ms(h.WarmupTimeoutMs) }

func (d DockerSource) Interval() time.Duration { return ms(d.IntervalMs) }
func (d DockerSource) Timeout() time.Duration  { return ms(d.TimeoutMs) }

func (w ModbusWriter) Timeout() time.Duration { return ms(w.TimeoutMs) }
