package notifiers

import (
	"context"
	"time"

	"github.com/fiffu/feedsync/lib/notify"
	"github.com/mailgun/mailgun-go/v4"
)

type emailPresenter struct {
	base
}

func (e *emailPresenter) Present(ctx context.Context, intent notify.Intent) (string, error) {
	mg := mailgun.NewMailgun(e.cfg.Mailgun.Domain, e.cfg.Mailgun.APIKey)
	mg.Client().Transport = e.transport

	format := formatIntent(intent)
	// Create message with empty body first, then SetHtml so the MIME
	// type is assigned properly.
	message := mg.NewMessage(e.cfg.Mailgun.SenderFrom, format.Subject(), "", e.cfg.Notify.Recipient)
	message.SetHtml(format.Body())

	timeout := time.Duration(e.cfg.Mailgun.TimeoutSecs) * time.Second
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	_, id, err := mg.Send(ctx, message)
	return id, err
}

func (e *emailPresenter) Cancel(ctx context.Context, kind notify.Kind, ownerID uint) error {
	// A sent email cannot be withdrawn.
	e.log.Sugar().Infof("Cancel is a no-op for email notifications (%s id:%v)", kind, ownerID)
	return nil
}
