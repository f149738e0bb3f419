package emailsvc

import (
	"net/mail"

	"github.com/pkg/errors"

	"github.com/infast/crm/core"
)

// envelope holds the sender-side settings every mail service shares.
type envelope struct {
	appName string
	from    mail.Address
}

func newEnvelope(conf *core.Config) envelope {
	return envelope{
		appName: conf.AppName,
		from:    mail.Address{Name: conf.AppName, Address: conf.Email.DefaultFromEmail},
	}
}

func (e envelope) subject(msg core.EmailMessage) string {
	return "[" + e.appName + "] " + msg.Subject
}

// render fills the message contents; ok is false when there is nothing to deliver.
func (e envelope) render(msg *core.EmailMessage) (ok bool, err error) {
	if err = msg.Render(e.appName); err != nil {
		return false, errors.Wrapf(err, "rendering email %q", msg.Subject)
	}
	return msg.HasRecipients() && msg.HasContent(), nil
}
