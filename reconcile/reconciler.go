package reconcile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/ficoreafrica/ficore/schema"
)

// ErrConflict is returned when a live index cannot be brought in line with
// its declaration.
var ErrConflict = errors.New("ficore: unrecoverable schema conflict")

// Report summarizes one reconciliation run. Index entries are
// "collection.index" names.
type Report struct {
	CollectionsCreated  []string
	CollectionsModified []string
	IndexesCreated      []string
	IndexesDropped      []string
	IndexesSkipped      []string
}

// Reconciler brings live collections, validators and indexes in line with a
// schema registry.
type Reconciler struct {
	catalog  Catalog
	registry *schema.Registry
	logger   *slog.Logger
}

// New creates a Reconciler. A nil logger uses slog.Default().
func New(catalog Catalog, registry *schema.Registry, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		catalog:  catalog,
		registry: registry,
		logger:   logger,
	}
}

// Run reconciles every registered collection in registration order. The
// first error aborts the run; the partial report is returned with it.
func (r *Reconciler) Run(ctx context.Context) (Report, error) {
	var report Report

	names, err := r.catalog.CollectionNames(ctx)
	if err != nil {
		return report, err
	}
	existing := make(map[string]bool, len(names))
	for _, n := range names {
		existing[n] = true
	}

	for _, c := range r.registry.All() {
		if err := r.collection(ctx, c, existing[c.Name], &report); err != nil {
			r.logger.Error("schema reconciliation failed", "collection", c.Name, "error", err)
			return report, err
		}
	}

	r.logger.Info("schema reconciled",
		"collections_created", len(report.CollectionsCreated),
		"indexes_created", len(report.IndexesCreated),
		"indexes_dropped", len(report.IndexesDropped),
		"indexes_skipped", len(report.IndexesSkipped),
	)
	return report, nil
}

func (r *Reconciler) collection(ctx context.Context, c schema.Collection, exists bool, report *Report) error {
	validator := c.Validator()
	if exists {
		if err := r.catalog.SetValidator(ctx, c.Name, validator); err != nil {
			return err
		}
		report.CollectionsModified = append(report.CollectionsModified, c.Name)
		r.logger.Debug("updated validator", "collection", c.Name)
	} else {
		if err := r.catalog.CreateCollection(ctx, c.Name, validator); err != nil {
			return err
		}
		report.CollectionsCreated = append(report.CollectionsCreated, c.Name)
		r.logger.Info("created collection", "collection", c.Name)
	}

	if len(c.Indexes) == 0 {
		return nil
	}

	live, err := r.catalog.ListIndexes(ctx, c.Name)
	if err != nil {
		return err
	}

	for _, idx := range c.Indexes {
		if idx.IsPrimary() {
			continue
		}
		ref := c.Name + "." + idx.IndexName()

		if match, ok := findByKeys(live, idx.Keys); ok {
			if sameOptions(match, idx) {
				report.IndexesSkipped = append(report.IndexesSkipped, ref)
				indexActions.WithLabelValues(c.Name, "skipped").Inc()
				continue
			}
			if err := r.drop(ctx, c.Name, match.Name, match.Keys); err != nil {
				return err
			}
			report.IndexesDropped = append(report.IndexesDropped, c.Name+"."+match.Name)
			r.logger.Info("dropped index with stale options", "collection", c.Name, "index", match.Name)
		}

		dropped, err := r.create(ctx, c.Name, idx)
		if dropped != "" {
			report.IndexesDropped = append(report.IndexesDropped, c.Name+"."+dropped)
		}
		if err != nil {
			return err
		}
		report.IndexesCreated = append(report.IndexesCreated, ref)
		idx.Name = idx.IndexName()
		live = append(live, idx)
	}
	return nil
}

// create creates idx, resolving a name collision by dropping the named index
// and retrying once. It returns the name of any index it dropped.
func (r *Reconciler) create(ctx context.Context, collection string, idx schema.Index) (string, error) {
	err := r.catalog.CreateIndex(ctx, collection, idx)
	if err == nil {
		indexActions.WithLabelValues(collection, "created").Inc()
		r.logger.Info("created index", "collection", collection, "index", idx.IndexName())
		return "", nil
	}
	if !errors.Is(err, ErrIndexConflict) {
		return "", err
	}

	name := idx.IndexName()
	r.logger.Warn("index name taken by other keys, recreating", "collection", collection, "index", name)
	if err := r.drop(ctx, collection, name, nil); err != nil {
		return "", err
	}
	if err := r.catalog.CreateIndex(ctx, collection, idx); err != nil {
		return name, fmt.Errorf("%w: %s.%s after retry: %v", ErrConflict, collection, name, err)
	}
	indexActions.WithLabelValues(collection, "created").Inc()
	r.logger.Info("created index", "collection", collection, "index", name)
	return name, nil
}

func (r *Reconciler) drop(ctx context.Context, collection, name string, keys []schema.Key) error {
	if schema.IsPrimaryIndex(name, keys) {
		return fmt.Errorf("%w: refusing to drop %s.%s", ErrConflict, collection, name)
	}
	if err := r.catalog.DropIndex(ctx, collection, name); err != nil {
		return err
	}
	indexActions.WithLabelValues(collection, "dropped").Inc()
	return nil
}

func findByKeys(live []schema.Index, keys []schema.Key) (schema.Index, bool) {
	for _, l := range live {
		if keysEqual(l.Keys, keys) {
			return l, true
		}
	}
	return schema.Index{}, false
}

func keysEqual(a, b []schema.Key) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func sameOptions(live, want schema.Index) bool {
	if live.Unique != want.Unique || live.Sparse != want.Sparse {
		return false
	}
	switch {
	case live.ExpireAfterSeconds == nil && want.ExpireAfterSeconds == nil:
	case live.ExpireAfterSeconds == nil || want.ExpireAfterSeconds == nil:
		return false
	case *live.ExpireAfterSeconds != *want.ExpireAfterSeconds:
		return false
	}
	return sameDoc(live.PartialFilter, want.PartialFilter)
}

func sameDoc(a, b bson.D) bool {
	if len(a) == 0 || len(b) == 0 {
		return len(a) == len(b)
	}
	ra, errA := bson.Marshal(a)
	rb, errB := bson.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(ra, rb)
}
