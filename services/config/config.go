// services/config/config.go
package config

import (
	"context"
	"errors"
	"os"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"rproc-go/bus"
)

const (
	serviceName  = "config"
	configPrefix = "config"
)

// Service resolves the deployment configuration and publishes each top-level
// section as a retained message on config/<section>. Consumers subscribe to
// their own section and receive it whenever they come up, in any order.
type Service struct {
	Name string
	Path string // optional YAML file; embedded default when empty
	Log  zerolog.Logger
}

func NewService(path string, log zerolog.Logger) *Service {
	return &Service{
		Name: serviceName,
		Path: path,
		Log:  log.With().Str("service", serviceName).Logger(),
	}
}

func (s *Service) publishConfig(conn *bus.Connection) error {
	raw, err := s.resolve()
	if err != nil {
		return err
	}

	var sections map[string]any
	if err := yaml.Unmarshal(raw, &sections); err != nil {
		return err
	}
	if len(sections) == 0 {
		return errors.New("empty deployment config")
	}

	for k, v := range sections {
		conn.Publish(&bus.Message{
			Topic:    bus.T(configPrefix, k),
			Payload:  v,
			Retained: true,
		})
		s.Log.Debug().Str("section", k).Msg("config section published")
	}
	return nil
}

func (s *Service) resolve() ([]byte, error) {
	if s.Path == "" {
		return []byte(defaultDeployment), nil
	}
	return os.ReadFile(s.Path)
}

// Start launches the config publisher in a goroutine.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) {
	go func() {
		if err := s.publishConfig(conn); err != nil {
			s.Log.Error().Err(err).Msg("config publish failed")
		}
	}()
}
