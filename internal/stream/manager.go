package stream

import (
	"context"
	"log"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"quotefeed/internal/metrics"
	"quotefeed/internal/symbols"
)

const (
	defaultBinanceURL = "wss://stream.binance.com:9443/ws"
	defaultFinnhubURL = "wss://ws.finnhub.io"

	defaultPingPeriod   = 15 * time.Second
	defaultReconnectMin = time.Second
	defaultReconnectMax = 30 * time.Second

	handshakeTimeout = 10 * time.Second
	writeTimeout     = 5 * time.Second
	readLimit        = 1 << 20
)

// Config holds the websocket endpoints and retry tuning. Zero values take
// the defaults above. Without a Finnhub key only the crypto feed runs.
type Config struct {
	BinanceURL    string
	FinnhubURL    string
	FinnhubAPIKey string

	PingPeriod   time.Duration
	ReconnectMin time.Duration
	ReconnectMax time.Duration
}

// Manager multiplexes subscriber callbacks over at most two upstream
// sockets and keeps them alive across disconnects. Subscribe routing
// follows the symbol: mapped crypto pairs go to Binance, the rest to
// Finnhub.
type Manager struct {
	cfg   Config
	reg   *registry
	met   *metrics.Metrics
	logf  func(format string, args ...any)
	feeds []*feed
}

// feed is one upstream socket: its dial target, frame dialect and the
// subset of symbols it serves.
type feed struct {
	name  string
	url   string
	wants func(string) bool
	frame func(symbol string, subscribe bool) ([]byte, bool)
	parse func([]byte) []Tick

	mu   sync.Mutex
	conn *websocket.Conn
}

// Option configures a Manager.
type Option func(*Manager)

// WithMetrics attaches stream counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(mgr *Manager) { mgr.met = m }
}

// WithLogf overrides the log sink.
func WithLogf(logf func(format string, args ...any)) Option {
	return func(mgr *Manager) { mgr.logf = logf }
}

func NewManager(cfg Config, opts ...Option) *Manager {
	if cfg.BinanceURL == "" {
		cfg.BinanceURL = defaultBinanceURL
	}
	if cfg.FinnhubURL == "" {
		cfg.FinnhubURL = defaultFinnhubURL
	}
	if cfg.PingPeriod <= 0 {
		cfg.PingPeriod = defaultPingPeriod
	}
	if cfg.ReconnectMin <= 0 {
		cfg.ReconnectMin = defaultReconnectMin
	}
	if cfg.ReconnectMax < cfg.ReconnectMin {
		cfg.ReconnectMax = defaultReconnectMax
	}

	m := &Manager{cfg: cfg, reg: newRegistry(), logf: log.Printf}
	for _, o := range opts {
		o(m)
	}

	binanceWants := func(sym string) bool {
		_, ok := symbols.BinanceStream(sym)
		return ok
	}
	m.feeds = append(m.feeds, &feed{
		name:  "binance",
		url:   cfg.BinanceURL,
		wants: binanceWants,
		frame: binanceFrame,
		parse: func(data []byte) []Tick {
			if t, ok := parseBinance(data); ok {
				return []Tick{t}
			}
			return nil
		},
	})
	if cfg.FinnhubAPIKey != "" {
		m.feeds = append(m.feeds, &feed{
			name:  "finnhub",
			url:   cfg.FinnhubURL + "?token=" + url.QueryEscape(cfg.FinnhubAPIKey),
			wants: func(sym string) bool { return !binanceWants(sym) },
			frame: finnhubFrame,
			parse: parseFinnhub,
		})
	}
	return m
}

// Subscribe registers h for symbol and returns a cancel that must be called
// when the consumer is done. The first subscriber for a symbol triggers the
// upstream subscribe frame, the last cancel the unsubscribe.
func (m *Manager) Subscribe(symbol string, h Handler) (cancel func()) {
	remove, first := m.reg.add(symbol, h)
	f := m.feedFor(symbol)
	if first && f != nil {
		if frame, ok := f.frame(symbol, true); ok {
			f.send(frame)
		}
	}
	return func() {
		if remove() && f != nil {
			if frame, ok := f.frame(symbol, false); ok {
				f.send(frame)
			}
		}
	}
}

func (m *Manager) feedFor(symbol string) *feed {
	for _, f := range m.feeds {
		if f.wants(symbol) {
			return f
		}
	}
	return nil
}

// Run connects every feed and blocks until ctx is cancelled, reconnecting
// with doubling backoff on any drop.
func (m *Manager) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, f := range m.feeds {
		wg.Add(1)
		go func(f *feed) {
			defer wg.Done()
			m.runFeed(ctx, f)
		}(f)
	}
	wg.Wait()
}

func (m *Manager) runFeed(ctx context.Context, f *feed) {
	backoff := m.cfg.ReconnectMin
	for {
		if err := m.connectAndRead(ctx, f); err != nil {
			m.logf("stream: %s: %v", f.name, err)
		}
		if ctx.Err() != nil {
			return
		}
		m.met.Reconnect()
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > m.cfg.ReconnectMax {
			backoff = m.cfg.ReconnectMax
		}
	}
}

// connectAndRead dials, replays the current subscriptions of this feed and
// pumps messages until the connection dies or ctx is cancelled.
func (m *Manager) connectAndRead(ctx context.Context, f *feed) error {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return err
	}
	f.setConn(conn)
	defer func() {
		f.setConn(nil)
		conn.Close()
	}()

	conn.SetReadLimit(readLimit)
	conn.SetReadDeadline(time.Now().Add(2 * m.cfg.PingPeriod))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(2 * m.cfg.PingPeriod))
	})

	for _, sym := range m.reg.symbols(f.wants) {
		if frame, ok := f.frame(sym, true); ok {
			f.send(frame)
		}
	}

	done := make(chan struct{})
	defer close(done)
	go m.pingLoop(ctx, f, done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		// Any inbound data proves liveness, not just pongs.
		conn.SetReadDeadline(time.Now().Add(2 * m.cfg.PingPeriod))
		for _, t := range f.parse(data) {
			m.met.Tick()
			m.reg.notify(t)
		}
	}
}

func (m *Manager) pingLoop(ctx context.Context, f *feed, done <-chan struct{}) {
	ticker := time.NewTicker(m.cfg.PingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			f.ping()
		case <-ctx.Done():
			return
		case <-done:
			return
		}
	}
}

func (f *feed) setConn(conn *websocket.Conn) {
	f.mu.Lock()
	f.conn = conn
	f.mu.Unlock()
}

// send writes a text frame if the feed is connected; offline sends are
// dropped because reconnect replays the registry anyway.
func (f *feed) send(frame []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conn == nil {
		return
	}
	f.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	f.conn.WriteMessage(websocket.TextMessage, frame)
}

func (f *feed) ping() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conn == nil {
		return
	}
	f.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	f.conn.WriteMessage(websocket.PingMessage, nil)
}
