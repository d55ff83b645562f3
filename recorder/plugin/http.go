package plugin

import (
	"context"
	"net/http"

	"github.com/fwdask/fwdask/internal/plugin"
	"github.com/fwdask/fwdask/logger"
	"github.com/fwdask/fwdask/recorder"
)

type httpPluginRequest struct {
	Data []byte `json:"data"`
}

type httpPluginResponse struct {
	OK bool `json:"ok"`
}

type httpPlugin struct {
	url     string
	client  *http.Client
	options plugin.Options
	log     logger.Logger
}

// NewHTTPPlugin creates a Recorder that posts {"data": <base64 record>} to url
// and expects {"ok": true} back.
func NewHTTPPlugin(name string, url string, opts ...plugin.Option) recorder.Recorder {
	options := plugin.NewOptions(opts...)
	return &httpPlugin{
		url:     url,
		client:  plugin.NewHTTPClient(&options),
		options: options,
		log: logger.Default().WithFields(map[string]any{
			"kind":     "recorder",
			"recorder": name,
			"plugin":   plugin.HTTP,
		}),
	}
}

func (p *httpPlugin) Record(ctx context.Context, b []byte) error {
	if len(b) == 0 {
		return nil
	}

	req, err := plugin.NewJSONRequest(ctx, p.url, &httpPluginRequest{Data: b}, &p.options)
	if err != nil {
		return err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		p.log.Error(err)
		return err
	}
	defer resp.Body.Close()

	var res httpPluginResponse
	if err := plugin.DecodeJSON(resp, &res); err != nil {
		return err
	}
	if !res.OK {
		return ErrRejected
	}
	return nil
}

func (p *httpPlugin) Close() error {
	p.client.CloseIdleConnections()
	return nil
}
