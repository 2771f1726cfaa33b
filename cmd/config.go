package main

import "time"

type Config struct {
	Host                 string        `env:"HOST,default=0.0.0.0"`
	Port                 int           `env:"PORT,default=4001"`
	LogLevel             string        `env:"LOG_LEVEL,default=info"`
	BufferSize           int           `env:"BUFFER_SIZE,default=256"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=64"`
	MaxBodyBytes         int64         `env:"MAX_BODY_BYTES,default=26214400"`
	MetricInterval       time.Duration `env:"METRIC_INTERVAL,default=5s"`
	RestartInterval      time.Duration `env:"RESTART_INTERVAL,default=200ms"`
}
