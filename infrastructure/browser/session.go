package browser

import (
	"fmt"

	"invoice_automation/domain/entities"
	"invoice_automation/domain/interfaces"

	"github.com/sirupsen/logrus"
)

// NewSession - opens the browser backend named in settings
func NewSession(settings entities.Settings, logger logrus.FieldLogger) (interfaces.BrowserSession, error) {
	switch settings.Browser {
	case entities.BrowserSelenium:
		session, err := NewSeleniumActuator(settings, logger)
		if err != nil {
			return nil, err
		}
		return session, nil
	case entities.BrowserPlaywright, "":
		session, err := NewPlaywrightActuator(settings, logger)
		if err != nil {
			return nil, err
		}
		return session, nil
	default:
		return nil, fmt.Errorf("unknown browser %q", settings.Browser)
	}
}
