package notifiers

import (
	"fmt"

	"github.com/fiffu/feedsync/lib/notify"
)

type intentFormat struct {
	intent notify.Intent
}

func formatIntent(intent notify.Intent) *intentFormat {
	return &intentFormat{intent}
}

func (f *intentFormat) Subject() string {
	switch f.intent.Kind {
	case notify.KindGrouping:
		return fmt.Sprintf("Feedsync: %d unread in %s", f.intent.Unread, f.intent.Title)
	default:
		return fmt.Sprintf("Feedsync: new article from %s", f.intent.Title)
	}
}

func (f *intentFormat) Body() string {
	return fmt.Sprintf(
		`
			<h3>%s</h3>
			<br>
			<pre>%s</pre>
		`,
		f.intent.Title, f.intent.Body,
	)
}
