package logging

import "github.com/sirupsen/logrus"

// Logger is the logging interface shared by all packages. Both *logrus.Logger
// and *logrus.Entry satisfy it.
type Logger = logrus.FieldLogger
