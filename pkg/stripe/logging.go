package stripe

import (
	"context"
	"fmt"

	"github.com/angelmondragon/farmfresh-backend/pkg/logger"
)

// leveledLogger routes stripe-go's internal request logging into the
// service logger.
type leveledLogger struct {
	logg *logger.Logger
}

func (l leveledLogger) ctx() context.Context {
	return l.logg.WithField(context.Background(), "component", "stripe-go")
}

func (l leveledLogger) Debugf(format string, v ...any) {
	l.logg.Debug(l.ctx(), fmt.Sprintf(format, v...))
}

// Infof is demoted: stripe-go logs every API request at info.
func (l leveledLogger) Infof(format string, v ...any) {
	l.logg.Debug(l.ctx(), fmt.Sprintf(format, v...))
}

func (l leveledLogger) Warnf(format string, v ...any) {
	l.logg.Warn(l.ctx(), fmt.Sprintf(format, v...))
}

func (l leveledLogger) Errorf(format string, v ...any) {
	l.logg.Error(l.ctx(), fmt.Sprintf(format, v...), nil)
}
