// Package mqtt wraps the paho client with the connection defaults this
// service needs. Devices publish readings to the broker; the ingest bridge
// subscribes here.
package mqtt

import (
	"crypto/tls"
	"errors"
	"log/slog"
	"net/url"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

type Client struct {
	cli paho.Client
}

type Message = paho.Message

func Connect(brokerURL, clientIDPrefix string) (*Client, error) {
	u, err := url.Parse(brokerURL)
	if err != nil {
		return nil, err
	}
	opts := paho.NewClientOptions()
	server := u.Host
	switch u.Scheme {
	case "mqtt", "tcp":
		server = "tcp://" + server
	case "ssl", "tls":
		server = "ssl://" + server
	case "ws", "wss":
		server = u.Scheme + "://" + server + u.Path
	}
	opts.AddBroker(server)

	prefix := clientIDPrefix
	if prefix == "" {
		prefix = "agrisense"
	}
	opts.SetClientID(prefix + "-" + time.Now().Format("150405.000"))
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.OnConnect = func(paho.Client) { slog.Info("mqtt connected", "broker", brokerURL) }
	opts.OnConnectionLost = func(_ paho.Client, err error) { slog.Warn("mqtt connection lost", "error", err) }

	if u.User != nil {
		pw, _ := u.User.Password()
		opts.SetUsername(u.User.Username())
		opts.SetPassword(pw)
	}
	if u.Scheme == "ssl" || u.Scheme == "tls" || u.Scheme == "wss" {
		opts.SetTLSConfig(&tls.Config{InsecureSkipVerify: true})
	}

	c := paho.NewClient(opts)
	tok := c.Connect()
	if ok := tok.WaitTimeout(15 * time.Second); !ok {
		if err := tok.Error(); err != nil {
			return nil, err
		}
		return nil, errors.New("mqtt connect timed out")
	}
	if err := tok.Error(); err != nil {
		return nil, err
	}
	return &Client{cli: c}, nil
}

func (c *Client) Subscribe(topic string, handler func(Message)) error {
	tok := c.cli.Subscribe(topic, 1, func(_ paho.Client, msg paho.Message) {
		handler(msg)
	})
	tok.Wait()
	return tok.Error()
}

func (c *Client) Close() {
	if c == nil || c.cli == nil {
		return
	}
	c.cli.Disconnect(1000)
}
