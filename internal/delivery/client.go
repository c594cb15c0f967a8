// Package delivery 把引擎产出的指令投递到 TradersPost 风格的 webhook 端点。
package delivery

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/betbot/titanbridge/internal/domain"
)

// ErrWebhookURLMissing 未配置投递地址
var ErrWebhookURLMissing = errors.New("TP_WEBHOOK_URL not set")

const defaultTimeout = 5 * time.Second

// Client 单次投递，不重试：重复下单的代价高于一次失败。
type Client struct {
	url    string
	client *resty.Client
	log    *logrus.Entry
}

// Option 客户端选项
type Option func(*Client)

// WithTimeout 单次投递超时
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.client.SetTimeout(d)
		}
	}
}

// WithLogger 替换日志
func WithLogger(l *logrus.Entry) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// NewClient url 为空时仍可创建，每次投递都返回失败结果
func NewClient(url string, opts ...Option) *Client {
	// resty 会自动读取 HTTP_PROXY / HTTPS_PROXY
	rc := resty.New().
		SetTimeout(defaultTimeout).
		SetRetryCount(0).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", "titanbridge/1.0")

	c := &Client{
		url:    url,
		client: rc,
		log:    logrus.NewEntry(logrus.StandardLogger()).WithField("component", "delivery"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Deliver 发送一条指令。任何失败（未配置、网络、非 2xx）都体现在结果里，不返回 error。
func (c *Client) Deliver(ctx context.Context, ins domain.Instruction) domain.DeliveryResult {
	res := domain.DeliveryResult{Action: ins.Action}

	if c.url == "" {
		c.log.WithField("ticker", ins.Ticker).Error(ErrWebhookURLMissing.Error())
		res.Error = ErrWebhookURLMissing.Error()
		return res
	}

	c.log.WithFields(logrus.Fields{
		"ticker": ins.Ticker,
		"action": ins.Action,
	}).Infof("发送指令到 TradersPost: %+v", ins)

	start := time.Now()
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(ins).
		Post(c.url)
	res.Latency = time.Since(start)

	if err := checkResponse(resp, err); err != nil {
		res.Error = err.Error()
		if resp != nil {
			res.StatusCode = resp.StatusCode()
			res.Body = resp.String()
		}
		c.log.WithFields(logrus.Fields{
			"ticker": ins.Ticker,
			"action": ins.Action,
		}).Errorf("投递失败: %v", err)
		return res
	}

	res.OK = true
	res.StatusCode = resp.StatusCode()
	res.Body = resp.String()
	return res
}

// checkResponse 传输错误与非 2xx 统一成 error
func checkResponse(resp *resty.Response, err error) error {
	if err != nil {
		return errors.Wrap(err, "post traderspost webhook")
	}
	if resp.IsSuccess() {
		return nil
	}
	return errors.Errorf("http non-2xx: %s", resp.Status())
}
