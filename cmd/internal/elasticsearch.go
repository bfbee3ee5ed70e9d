package internal

import (
	"net/http"

	esv7 "github.com/elastic/go-elasticsearch/v7"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/studytrack/coursetasks/internal"
	"github.com/studytrack/coursetasks/internal/envvar"
)

// NewElasticSearch instantiates the ElasticSearch client using configuration
// defined in environment variables, outgoing requests are traced.
func NewElasticSearch(conf *envvar.Configuration) (es *esv7.Client, err error) {
	addr, err := conf.Get("ELASTICSEARCH_URL")
	if err != nil {
		return nil, internal.WrapErrorf(err, internal.ErrorCodeUnknown, "conf.Get ELASTICSEARCH_URL")
	}

	config := esv7.Config{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	if addr != "" {
		config.Addresses = []string{addr}
	}

	es, err = esv7.NewClient(config)
	if err != nil {
		return nil, internal.WrapErrorf(err, internal.ErrorCodeUnknown, "elasticsearch.NewClient")
	}

	res, err := es.Info()
	if err != nil {
		return nil, internal.WrapErrorf(err, internal.ErrorCodeUnknown, "es.Info")
	}

	defer func() {
		err = res.Body.Close()
	}()

	return es, nil
}
