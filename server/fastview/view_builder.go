package fastview

import (
	"context"
	"errors"
	"time"

	channerics "github.com/niceyeti/channerics/channels"
)

// DefaultBatchRate bounds how often a page's merged view updates are emitted.
const DefaultBatchRate = 20 * time.Millisecond

// Source hands out a private channel of data models along with the func releasing it.
// The channel is closed once released, or when the source itself shuts down.
type Source[DataModel any] interface {
	Subscribe() (<-chan DataModel, func())
}

// ViewFunc builds a view from a 'done' channel for cleanup and its view-model channel.
type ViewFunc[ViewModel any] func(<-chan struct{}, <-chan ViewModel) ViewComponent

// ViewBuilder wires one subscription to a set of views sharing a view-model: each data
// model is converted once, broadcast to every view, and the views' updates are merged
// into one batched stream for a single page.
type ViewBuilder[DataModel any, ViewModel any] struct {
	convert   func(DataModel) ViewModel
	source    Source[DataModel]
	viewFns   []ViewFunc[ViewModel]
	batchRate time.Duration
}

// NewViewBuilder returns a builder converting data models to view models with convert.
func NewViewBuilder[DataModel any, ViewModel any](
	convert func(DataModel) ViewModel,
) *ViewBuilder[DataModel, ViewModel] {
	return &ViewBuilder[DataModel, ViewModel]{
		convert:   convert,
		batchRate: DefaultBatchRate,
	}
}

// Subscribe sets the source the built page subscribes to. Without one the views never
// update, which suits a page that is only parsed and rendered.
func (vb *ViewBuilder[DataModel, ViewModel]) Subscribe(
	source Source[DataModel],
) *ViewBuilder[DataModel, ViewModel] {
	vb.source = source
	return vb
}

// WithView adds a view. Views are returned in the order they were added.
func (vb *ViewBuilder[DataModel, ViewModel]) WithView(
	viewFn ViewFunc[ViewModel],
) *ViewBuilder[DataModel, ViewModel] {
	vb.viewFns = append(vb.viewFns, viewFn)
	return vb
}

// BatchRate overrides DefaultBatchRate.
func (vb *ViewBuilder[DataModel, ViewModel]) BatchRate(
	rate time.Duration,
) *ViewBuilder[DataModel, ViewModel] {
	vb.batchRate = rate
	return vb
}

var (
	// ErrNoViews is returned when Build is called before any view was added.
	ErrNoViews = errors.New("no views to build: WithView must be called")
	// ErrNoConvert is returned when the builder has no data model conversion.
	ErrNoConvert = errors.New("no conversion from data model to view model")
	// ErrBadBatchRate is returned for a batch rate that is not positive.
	ErrBadBatchRate = errors.New("batch rate must be positive")
)

// Page is the set of views built over one subscription, and their merged updates.
type Page struct {
	Views   []ViewComponent
	updates <-chan []EleUpdate
}

// Updates returns the batched ele-updates of every view. It is closed once the page's
// context is done or its source closes, after a final flush in the latter case.
func (page *Page) Updates() <-chan []EleUpdate {
	return page.updates
}

// Build subscribes to the source and connects the subscription through the conversion to
// every view. The page owns the subscription: it is released when ctx is done.
func (vb *ViewBuilder[DataModel, ViewModel]) Build(ctx context.Context) (*Page, error) {
	if len(vb.viewFns) == 0 {
		return nil, ErrNoViews
	}
	if vb.convert == nil {
		return nil, ErrNoConvert
	}
	if vb.batchRate <= 0 {
		return nil, ErrBadBatchRate
	}

	done := ctx.Done()
	var models <-chan DataModel
	if vb.source != nil {
		var unsubscribe func()
		models, unsubscribe = vb.source.Subscribe()
		go func() {
			<-done
			unsubscribe()
		}()
	}

	viewModels := channerics.Broadcast(
		done,
		channerics.Convert(done, models, vb.convert),
		len(vb.viewFns))
	views := make([]ViewComponent, 0, len(vb.viewFns))
	for i, viewFn := range vb.viewFns {
		views = append(views, viewFn(done, viewModels[i]))
	}

	return &Page{
		Views:   views,
		updates: FanIn(done, views, vb.batchRate),
	}, nil
}
