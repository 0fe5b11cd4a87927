package sinks

import (
	"context"

	"github.com/sirupsen/logrus"

	"giantgrab/server/logging"
)

// ConsoleSink renders events through a logrus logger.
type ConsoleSink struct {
	logger logrus.FieldLogger
}

func NewConsoleSink(logger logrus.FieldLogger, cfg logging.ConsoleConfig) *ConsoleSink {
	if logger == nil {
		base := logrus.New()
		base.SetFormatter(&logrus.TextFormatter{ForceColors: cfg.UseColor})
		logger = base
	}
	return &ConsoleSink{logger: logger}
}

func (s *ConsoleSink) Write(event logging.Event) error {
	if s.logger == nil {
		return nil
	}
	entry := s.logger.WithFields(logrus.Fields{
		"tick":     event.Tick,
		"actor":    formatEntity(event.Actor),
		"category": event.Category,
	})
	if len(event.Targets) > 0 {
		targets := make([]string, 0, len(event.Targets))
		for _, target := range event.Targets {
			targets = append(targets, formatEntity(target))
		}
		entry = entry.WithField("targets", targets)
	}
	if event.Payload != nil {
		entry = entry.WithField("payload", event.Payload)
	}
	for k, v := range event.Extra {
		entry = entry.WithField(k, v)
	}
	switch event.Severity {
	case logging.SeverityDebug:
		entry.Debug(string(event.Type))
	case logging.SeverityWarn:
		entry.Warn(string(event.Type))
	case logging.SeverityError:
		entry.Error(string(event.Type))
	default:
		entry.Info(string(event.Type))
	}
	return nil
}

func (s *ConsoleSink) Close(context.Context) error {
	return nil
}

func formatEntity(ref logging.EntityRef) string {
	if ref.ID == "" {
		return string(ref.Kind)
	}
	if ref.Kind == "" {
		return ref.ID
	}
	return string(ref.Kind) + ":" + ref.ID
}
