package feed

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kibang/soil-tracker/internal/logger"
	"github.com/kibang/soil-tracker/internal/sensor"
)

// DataFunc receives the latest reading snapshot. A nil reading means the feed
// delivered an explicitly empty snapshot (no sensor data at the path).
type DataFunc func(r *sensor.Reading)

// ErrFunc receives feed subscription errors. The subscription keeps trying to
// reconnect after reporting one.
type ErrFunc func(err error)

// Feed is a push source of latest-reading snapshots.
type Feed interface {
	// Subscribe starts delivering snapshots and returns a disposer.
	// The disposer is idempotent.
	Subscribe(onData DataFunc, onErr ErrFunc) (unsubscribe func())
}

// Client subscribes to the realtime sensor feed over a websocket.
// Every message is a full JSON snapshot of the latest reading; the literal
// "null" means no data at the path.
type Client struct {
	url           string
	retryInterval time.Duration
}

// NewClient creates a feed client for the given websocket URL.
func NewClient(url string, retryInterval time.Duration) *Client {
	if retryInterval <= 0 {
		retryInterval = 3 * time.Second
	}
	return &Client{url: url, retryInterval: retryInterval}
}

func (c *Client) Subscribe(onData DataFunc, onErr ErrFunc) func() {
	done := make(chan struct{})
	var once sync.Once

	go c.readLoop(done, onData, onErr)

	return func() {
		once.Do(func() { close(done) })
	}
}

func (c *Client) readLoop(done chan struct{}, onData DataFunc, onErr ErrFunc) {
	for {
		select {
		case <-done:
			return
		default:
		}

		conn, _, err := websocket.DefaultDialer.Dial(c.url, nil)
		if err != nil {
			logger.Warn("Feed dial failed", "url", c.url, "error", err)
			onErr(err)
			if !c.sleep(done) {
				return
			}
			continue
		}

		// Closing the connection on done unblocks ReadMessage
		closed := make(chan struct{})
		go func() {
			select {
			case <-done:
				conn.Close()
			case <-closed:
			}
		}()

		c.readMessages(conn, done, onData, onErr)
		close(closed)
		conn.Close()

		select {
		case <-done:
			return
		default:
		}
		if !c.sleep(done) {
			return
		}
	}
}

func (c *Client) readMessages(conn *websocket.Conn, done chan struct{}, onData DataFunc, onErr ErrFunc) {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-done:
			default:
				logger.Warn("Feed read failed", "error", err)
				onErr(err)
			}
			return
		}

		var reading *sensor.Reading
		if err := json.Unmarshal(msg, &reading); err != nil {
			logger.Warn("Feed message decode failed", "error", err)
			onErr(err)
			continue
		}

		onData(reading)
	}
}

// sleep waits for the retry interval; returns false if done fired first.
func (c *Client) sleep(done chan struct{}) bool {
	select {
	case <-done:
		return false
	case <-time.After(c.retryInterval):
		return true
	}
}
