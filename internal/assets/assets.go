package assets

import (
	"embed"
	"fmt"
	"strconv"
	"time"

	"github.com/aegis-sign/walletbridge/internal/envelope"
	"github.com/aegis-sign/walletbridge/pkg/host"
)

// DefaultTimeout 是页面端等待响应的超时时间。
const DefaultTimeout = 60 * time.Second

//go:embed scripts/browser.js scripts/desktop.js
var scripts embed.FS

// SetupScript 返回指定方言的注入脚本，前缀声明客户端标识、超时与通道名。
func SetupScript(dialect envelope.Dialect, channel, clientIdentity string, timeout time.Duration) (host.UserScript, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	var (
		name     string
		injectAt host.InjectAt
	)
	switch dialect {
	case envelope.Passthrough:
		name, injectAt = "scripts/browser.js", host.AtDocumentEnd
	case envelope.Correlated:
		name, injectAt = "scripts/desktop.js", host.AtDocumentStart
	default:
		return host.UserScript{}, fmt.Errorf("no setup script for dialect %q", dialect)
	}
	body, err := scripts.ReadFile(name)
	if err != nil {
		return host.UserScript{}, err
	}
	prelude := "var SP_USER_AGENT_IOS = " + host.QuoteJS(clientIdentity) + ";\n" +
		"var SP_TIMEOUT = " + strconv.FormatInt(timeout.Milliseconds(), 10) + ";\n" +
		"var SP_CHANNEL = " + host.QuoteJS(channel) + ";\n"
	return host.UserScript{Source: prelude + string(body), InjectAt: injectAt, MainFrameOnly: true}, nil
}
