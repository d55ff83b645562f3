package plugin

import (
	"context"
	"net/http"

	"github.com/fwdask/fwdask/evaluator"
	"github.com/fwdask/fwdask/flow"
	"github.com/fwdask/fwdask/internal/plugin"
	"github.com/fwdask/fwdask/logger"
	"github.com/fwdask/fwdask/store"
)

type httpPluginRequest struct {
	Fingerprint string     `json:"fingerprint"`
	Flow        *flow.Flow `json:"flow"`
}

type httpPluginResponse struct {
	WantsFlow  bool    `json:"wantsFlow"`
	Confidence float64 `json:"confidence"`
}

type httpPlugin struct {
	url     string
	client  *http.Client
	options plugin.Options
	log     logger.Logger
}

// NewHTTPPlugin creates an Evaluator that posts the flow as JSON to url
// and reads the opinion from the response.
func NewHTTPPlugin(name string, url string, opts ...plugin.Option) evaluator.Evaluator {
	options := plugin.NewOptions(opts...)
	return &httpPlugin{
		url:     url,
		client:  plugin.NewHTTPClient(&options),
		options: options,
		log: logger.Default().WithFields(map[string]any{
			"kind":      "evaluator",
			"evaluator": name,
		}),
	}
}

func (p *httpPlugin) Opine(ctx context.Context, f *flow.Flow, r store.Reader) evaluator.Opinion {
	fp, _ := f.Fingerprint()
	req, err := plugin.NewJSONRequest(ctx, p.url, &httpPluginRequest{
		Fingerprint: fp,
		Flow:        f,
	}, &p.options)
	if err != nil {
		p.log.Error(err)
		return fallback
	}

	resp, err := p.client.Do(req)
	if err != nil {
		p.log.Error(err)
		return fallback
	}
	defer resp.Body.Close()

	var res httpPluginResponse
	if err := plugin.DecodeJSON(resp, &res); err != nil {
		p.log.Errorf("%s: %v", p.url, err)
		return fallback
	}
	o, err := evaluator.NewOpinion(res.WantsFlow, res.Confidence)
	if err != nil {
		p.log.Error(err)
		return fallback
	}
	return o
}

func (p *httpPlugin) Close() error {
	p.client.CloseIdleConnections()
	return nil
}
