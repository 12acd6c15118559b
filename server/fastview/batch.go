package fastview

import (
	"sort"
	"time"

	channerics "github.com/niceyeti/channerics/channels"
)

// FanIn merges the views' ele-update channels into one, batched per rate.
func FanIn(
	done <-chan struct{},
	views []ViewComponent,
	rate time.Duration,
) <-chan []EleUpdate {
	inputs := make([]<-chan []EleUpdate, len(views))
	for i, view := range views {
		inputs[i] = view.Updates()
	}
	return Batchify(done, channerics.Merge(done, inputs...), rate)
}

// Batchify collects updates for up to rate before sending them as one batch, keeping only
// the latest update per ele-id. Whatever is pending when the source goes quiet is flushed
// on the next tick, and whatever is pending when it closes is flushed before the output closes.
func Batchify(
	done <-chan struct{},
	source <-chan []EleUpdate,
	rate time.Duration,
) <-chan []EleUpdate {
	output := make(chan []EleUpdate)

	go func() {
		defer close(output)

		data := map[string]EleUpdate{}
		flush := func() bool {
			if len(data) == 0 {
				return true
			}
			select {
			case output <- sortedVals(data):
				data = map[string]EleUpdate{}
				return true
			case <-done:
				return false
			}
		}

		ticks := channerics.NewTicker(done, rate)
		for {
			select {
			case <-done:
				return
			case updates, ok := <-source:
				if !ok {
					flush()
					return
				}
				for _, update := range updates {
					data[update.EleId] = update
				}
			case <-ticks:
				if !flush() {
					return
				}
			}
		}
	}()

	return output
}

// sortedVals returns the updates ordered by ele-id.
func sortedVals(mp map[string]EleUpdate) []EleUpdate {
	sorted := make([]EleUpdate, 0, len(mp))
	for _, v := range mp {
		sorted = append(sorted, v)
	}
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].EleId < sorted[j].EleId
	})
	return sorted
}
