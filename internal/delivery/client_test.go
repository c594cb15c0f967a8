package delivery

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/betbot/titanbridge/internal/domain"
)

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func sampleInstruction() domain.Instruction {
	return domain.Instruction{
		Ticker:   "MNQZ2025",
		Action:   domain.ActionBuy,
		Quantity: optional.Some(1),
		Price:    optional.Some(25787.5),
		Time:     time.Date(2025, 11, 3, 14, 30, 0, 0, time.UTC),
	}
}

func TestDeliverPostsJSON(t *testing.T) {
	var (
		mu   sync.Mutex
		body map[string]any
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		mu.Lock()
		_ = json.NewDecoder(r.Body).Decode(&body)
		mu.Unlock()
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithLogger(quietLogger()))
	res := c.Deliver(context.Background(), sampleInstruction())

	require.True(t, res.OK, res.Error)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, `{"success":true}`, res.Body)
	assert.Equal(t, domain.ActionBuy, res.Action)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "MNQZ2025", body["ticker"])
	assert.Equal(t, "buy", body["action"])
	assert.EqualValues(t, 1, body["quantity"])
	assert.EqualValues(t, 25787.5, body["price"])
	assert.NotContains(t, body, "interval")
}

func TestDeliverNon2xxIsFailureWithoutRetry(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithLogger(quietLogger()))
	res := c.Deliver(context.Background(), sampleInstruction())

	assert.False(t, res.OK)
	assert.Equal(t, http.StatusBadGateway, res.StatusCode)
	assert.Equal(t, "upstream down", res.Body)
	assert.Contains(t, res.Error, "non-2xx")
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestDeliverTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewClient(srv.URL, WithTimeout(50*time.Millisecond), WithLogger(quietLogger()))
	res := c.Deliver(context.Background(), sampleInstruction())

	assert.False(t, res.OK)
	assert.NotEmpty(t, res.Error)
	assert.Zero(t, res.StatusCode)
}

func TestDeliverWithoutURL(t *testing.T) {
	c := NewClient("", WithLogger(quietLogger()))
	res := c.Deliver(context.Background(), sampleInstruction())
	assert.False(t, res.OK)
	assert.Equal(t, ErrWebhookURLMissing.Error(), res.Error)
}

func TestDryRunAlwaysSucceeds(t *testing.T) {
	d := NewDryRun(quietLogger())
	ins := sampleInstruction()
	ins.Action = domain.ActionExit
	res := d.Deliver(context.Background(), ins)
	assert.True(t, res.OK)
	assert.Equal(t, domain.ActionExit, res.Action)
}
