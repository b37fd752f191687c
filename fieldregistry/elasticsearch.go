package fieldregistry

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gopkg.in/olivere/elastic.v5"
)

const (
	// DefaultIndex is where the field documents are kept.
	DefaultIndex = "socorro"

	// DefaultDocType is the document type of one field.
	DefaultDocType = "supersearch_fields"

	maxFields = 10000
)

// ElasticsearchRegistry reads one document per field from an Elasticsearch
// index.
type ElasticsearchRegistry struct {
	client  *elastic.Client
	index   string
	docType string
}

// NewElasticsearchRegistry connects to url. Sniffing and health checks are
// off: the registry is read rarely and often through a proxy.
func NewElasticsearchRegistry(url, index, docType string) (*ElasticsearchRegistry, error) {
	client, err := elastic.NewClient(
		elastic.SetURL(url),
		elastic.SetSniff(false),
		elastic.SetHealthcheck(false),
	)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot create elasticsearch client for %s", url)
	}
	return NewElasticsearchRegistryFromClient(client, index, docType), nil
}

// NewElasticsearchRegistryFromClient uses an existing client. Empty index and
// docType fall back to DefaultIndex and DefaultDocType.
func NewElasticsearchRegistryFromClient(client *elastic.Client, index, docType string) *ElasticsearchRegistry {
	if index == "" {
		index = DefaultIndex
	}
	if docType == "" {
		docType = DefaultDocType
	}
	return &ElasticsearchRegistry{client: client, index: index, docType: docType}
}

// Fields implements Registry.
func (r *ElasticsearchRegistry) Fields(ctx context.Context) (map[string]Field, error) {
	res, err := r.client.Search().
		Index(r.index).
		Type(r.docType).
		Query(elastic.NewMatchAllQuery()).
		Size(maxFields).
		Do(ctx)
	if err != nil {
		log.WithFields(log.Fields{
			"index":    r.index,
			"doc_type": r.docType,
		}).WithError(err).Error("Can't search field registry")
		return nil, errors.Wrap(err, "cannot search field registry")
	}

	fields := map[string]Field{}
	if res.Hits == nil {
		return fields, nil
	}
	for _, hit := range res.Hits.Hits {
		if hit.Source == nil {
			continue
		}
		var f Field
		if err := json.Unmarshal(*hit.Source, &f); err != nil {
			return nil, errors.Wrapf(err, "cannot decode field document %s", hit.Id)
		}
		if f.Name == "" {
			f.Name = hit.Id
		}
		fields[f.Name] = f
	}
	log.WithField("fields", len(fields)).Debug("loaded field registry")
	return fields, nil
}
