package dataset

import (
	"context"

	"go.uber.org/zap"

	"github.com/quarrydata/quarry/errors"
	"github.com/quarrydata/quarry/logger"
)

// Resolver maps a dataset ID to an execution plan. Read-only: it touches
// the definition stores and nothing else.
type Resolver struct {
	store *Store
	log   *zap.SugaredLogger
}

// NewResolver creates a resolver over the dataset store
func NewResolver(store *Store, log *zap.SugaredLogger) *Resolver {
	return &Resolver{store: store, log: logger.Or(log)}
}

// Resolve loads the dataset, its source credentials, and its template (when
// referenced) into a Plan.
//
// Errors:
//   - ErrNotFound: dataset or its source missing
//   - ErrConfigInvalid: source has no usable credentials
//   - ErrTemplateMissing: template referenced but absent from both the
//     shared and user template collections
func (r *Resolver) Resolve(ctx context.Context, datasetID string) (*Plan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ds, err := r.store.GetDataset(datasetID)
	if err != nil {
		return nil, errors.Wrap(err, "resolve dataset")
	}

	src, err := r.store.GetSource(ds.SourceID)
	if err != nil {
		return nil, errors.Wrapf(err, "resolve source for dataset %s", datasetID)
	}

	creds, err := src.Credentials()
	if err != nil {
		return nil, err
	}

	plan := &Plan{
		DatasetID:    ds.ID,
		DatasetType:  ds.Type,
		Credentials:  creds,
		ResourceHint: ds.ParamString("resource"),
	}

	switch ds.Type {
	case TypeDirectAPI:
		fn := ds.ParamString("function_name")
		if fn == "" {
			return nil, errors.Wrapf(errors.ErrConfigInvalid, "direct_api dataset %s has no function_name param", datasetID)
		}
		plan.RemoteFunction = fn

	case TypeDependent:
		tpl, err := r.template(ds)
		if err != nil {
			return nil, err
		}
		if tpl.PrimaryQuery == "" || tpl.SecondaryQuery == "" {
			return nil, errors.Wrapf(errors.ErrTemplateMissing, "template %s lacks a primary/secondary query pair", tpl.ID)
		}
		plan.PrimaryQuery = tpl.PrimaryQuery
		plan.SecondaryQuery = tpl.SecondaryQuery
		plan.IDPath = tpl.IDPath

	case TypePredefined, TypeCustom:
		tpl, err := r.template(ds)
		if err != nil {
			return nil, err
		}
		if tpl.QueryTemplate == "" {
			return nil, errors.Wrapf(errors.ErrTemplateMissing, "template %s has no query template", tpl.ID)
		}
		plan.QueryTemplate = tpl.QueryTemplate

	default:
		return nil, errors.Newf("unknown dataset type: %s", ds.Type)
	}

	r.log.Debugw("Resolved dataset",
		logger.FieldDatasetID, ds.ID,
		"type", ds.Type,
		logger.FieldTemplateID, ds.TemplateID,
	)

	return plan, nil
}

func (r *Resolver) template(ds *Dataset) (*Template, error) {
	if ds.TemplateID == "" {
		return nil, errors.Wrapf(errors.ErrTemplateMissing, "dataset %s has no template reference", ds.ID)
	}
	tpl, err := r.store.GetTemplate(ds.TemplateID)
	if err != nil {
		return nil, err
	}
	return tpl, nil
}
