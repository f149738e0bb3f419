package emailsvc

import (
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/mail"
	"net/textproto"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/infast/crm/core"
)

var (
	// SentMessages records what the console services delivered, for tests.
	SentMessages = make([]core.EmailMessage, 0)
	mu           sync.Mutex
)

type consoleService struct {
	envelope
	out   *log.Logger
	async bool
}

var _ core.EmailService = (*consoleService)(nil)

// NewConsoleService prints messages to stdout instead of sending them.
func NewConsoleService(conf *core.Config) core.EmailService {
	return &consoleService{
		envelope: newEnvelope(conf),
		out:      log.New(os.Stdout, "MAIL : ", log.LstdFlags),
		async:    true,
	}
}

// NewConsoleServiceMock delivers synchronously and silently; messages land in SentMessages.
func NewConsoleServiceMock(conf *core.Config) core.EmailService {
	return &consoleService{
		envelope: newEnvelope(conf),
		out:      log.New(io.Discard, "", 0),
	}
}

func (svc consoleService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		if svc.async {
			go svc.deliver(msg)
		} else {
			svc.deliver(msg)
		}
	}
}

func (svc consoleService) deliver(msg *core.EmailMessage) {
	ok, err := svc.render(msg)
	if err != nil {
		svc.out.Printf("%+v", err)
		return
	}
	if !ok {
		return
	}
	raw, err := svc.mime(*msg)
	if err != nil {
		svc.out.Printf("%+v", err)
		return
	}
	svc.out.Println(raw)

	mu.Lock()
	SentMessages = append(SentMessages, *msg)
	mu.Unlock()
}

// mime renders the message as a multipart/alternative RFC 5322 message.
func (svc consoleService) mime(msg core.EmailMessage) (string, error) {
	var sb strings.Builder
	parts := multipart.NewWriter(&sb)

	headers := [][2]string{
		{"From", svc.from.String()},
		{"To", joinAddresses(msg.To)},
		{"Subject", svc.subject(msg)},
		{"Date", time.Now().Format(time.RFC1123Z)},
		{"MIME-Version", "1.0"},
		{"Content-Type", "multipart/alternative; boundary=" + parts.Boundary()},
	}
	for _, h := range headers {
		fmt.Fprintf(&sb, "%s: %s\r\n", h[0], h[1])
	}
	sb.WriteString("\r\n")

	contents := []struct{ typ, body string }{{"text/plain", msg.TextContent}, {"text/html", msg.HTMLContent}}
	for _, c := range contents {
		if c.body == "" {
			continue
		}
		w, err := parts.CreatePart(textproto.MIMEHeader{"Content-Type": {c.typ + "; charset=utf-8"}})
		if err != nil {
			return "", errors.Wrapf(err, "creating %s part", c.typ)
		}
		fmt.Fprintf(w, "%s\r\n", c.body)
	}
	if err := parts.Close(); err != nil {
		return "", errors.Wrap(err, "closing multipart body")
	}
	return sb.String(), nil
}

func joinAddresses(addrs []mail.Address) string {
	out := make([]string, len(addrs))
	for i, a := range addrs {
		out[i] = a.String()
	}
	return strings.Join(out, ", ")
}

// ClearSentMessages empties SentMessages between tests.
func ClearSentMessages() {
	mu.Lock()
	SentMessages = make([]core.EmailMessage, 0)
	mu.Unlock()
}
