package api

import "github.com/okian/verdict/pkg/logger"

const defaultMaxBodyBytes int64 = 1 << 20

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithRateLimit enables a token bucket of rps requests per second with the
// given burst. rps <= 0 disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(s *Server) {
		s.rateLimit = rps
		s.rateBurst = burst
	}
}

// WithCORSOrigins allows cross-origin requests from origins.
func WithCORSOrigins(origins ...string) Option {
	return func(s *Server) {
		s.corsOrigins = append([]string(nil), origins...)
	}
}

// WithMaxBodyBytes caps request bodies.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBodyBytes = n
		}
	}
}

// WithLogger sets the handler logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}
