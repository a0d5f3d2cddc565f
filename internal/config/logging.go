package config

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// ConfigureLogging sets the process-wide logrus level and formatter and
// returns an entry tagged with the service and host names
func ConfigureLogging(service, level string) (*logrus.Entry, error) {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	if level != "" {
		lvl, err := logrus.ParseLevel(strings.ToLower(level))
		if err != nil {
			return nil, err
		}
		logrus.SetLevel(lvl)
	}

	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	return logrus.StandardLogger().
		WithField("hostname", hostname).
		WithField("service", service), nil
}
