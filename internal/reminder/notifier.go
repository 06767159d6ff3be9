package reminder

import (
	"context"

	"github.com/sirupsen/logrus"
)

// LogNotifier writes due reminders to the log. It stands in for a push
// gateway in environments without one.
type LogNotifier struct {
	log logrus.FieldLogger
}

func NewLogNotifier(log logrus.FieldLogger) *LogNotifier {
	return &LogNotifier{log: log.WithField("component", "notifier")}
}

func (n *LogNotifier) Notify(_ context.Context, s Scheduled) error {
	n.log.WithFields(logrus.Fields{
		"handle":  s.Handle,
		"type":    s.Content.Data[DataType],
		"title":   s.Content.Title,
		"trigger": s.Trigger.String(),
	}).Info(s.Content.Body)
	return nil
}
