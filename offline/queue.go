package offline

import (
	"context"
	"sync"
	"time"

	"github.com/jamesrr39/goutil/errorsx"
	"github.com/jamesrr39/goutil/logpkg"
	"github.com/jamesrr39/ownmapstyle/styling/mapboxglstyle"
)

type QueueStatus int

const (
	QueueStatusQueued     QueueStatus = 1
	QueueStatusInProgress QueueStatus = 2
	QueueStatusDone       QueueStatus = 3
	QueueStatusFailed     QueueStatus = 4
)

var queueStatusNames = []string{
	"",
	"Queued",
	"In Progress",
	"Done",
	"Failed",
}

func (s QueueStatus) String() string {
	return queueStatusNames[s]
}

func (s QueueStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

type queueItem struct {
	region  TileRegion
	style   *mapboxglstyle.Style
	status  QueueStatus
	job     *Job
	err     errorsx.Error
	endTime time.Time
}

// QueueItemStatus is a snapshot of a queued region download
type QueueItemStatus struct {
	RegionID        string        `json:"regionId"`
	StyleID         string        `json:"styleId"`
	Status          QueueStatus   `json:"status"`
	ProgressPercent float64       `json:"progressPercent"`
	Progress        Progress      `json:"progress"`
	TimeInProgress  time.Duration `json:"timeInProgress"`
	Error           string        `json:"error,omitempty"`
}

// Queue downloads regions one at a time, in the order they were added
type Queue struct {
	logger     *logpkg.Logger
	downloader *Downloader
	ctx        context.Context
	mu         sync.RWMutex
	items      []*queueItem
}

// NewQueue creates a queue. Cancelling ctx stops the download in progress.
func NewQueue(ctx context.Context, logger *logpkg.Logger, downloader *Downloader) *Queue {
	return &Queue{logger: logger, downloader: downloader, ctx: ctx}
}

func (q *Queue) AddItemToQueue(style *mapboxglstyle.Style, region TileRegion) errorsx.Error {
	err := region.Validate()
	if err != nil {
		return err
	}

	q.mu.Lock()
	for _, item := range q.items {
		if item.region.ID == region.ID && (item.status == QueueStatusQueued || item.status == QueueStatusInProgress) {
			q.mu.Unlock()
			return errorsx.Errorf("region %q is already queued", region.ID)
		}
	}
	q.items = append(q.items, &queueItem{region: region, style: style, status: QueueStatusQueued})
	q.mu.Unlock()

	q.startNext()
	return nil
}

func (q *Queue) GetItems() []QueueItemStatus {
	q.mu.RLock()
	defer q.mu.RUnlock()

	statuses := []QueueItemStatus{}
	for _, item := range q.items {
		status := QueueItemStatus{
			RegionID: item.region.ID,
			StyleID:  item.style.ID,
			Status:   item.status,
		}

		if item.job != nil {
			status.Progress = item.job.Progress()
			status.ProgressPercent = status.Progress.Percent()

			endTime := item.endTime
			if endTime.IsZero() {
				endTime = time.Now()
			}
			status.TimeInProgress = endTime.Sub(item.job.StartTime)
		}

		if item.err != nil {
			status.Error = item.err.Error()
		}

		statuses = append(statuses, status)
	}

	return statuses
}

func (q *Queue) startNext() {
	q.mu.Lock()
	defer q.mu.Unlock()

	var next *queueItem
	for _, item := range q.items {
		if item.status == QueueStatusInProgress {
			// there is already a download in progress. Wait.
			return
		}

		if next == nil && item.status == QueueStatusQueued {
			next = item
		}
	}

	if next == nil {
		return
	}

	job, err := q.downloader.Start(q.ctx, next.style, next.region)
	if err != nil {
		next.status = QueueStatusFailed
		next.err = err
		next.endTime = time.Now()
		q.logger.Error("failed to start downloading region %q. Error: %q\nStack: %s", next.region.ID, err.Error(), err.Stack())
		go q.startNext()
		return
	}

	next.status = QueueStatusInProgress
	next.job = job

	go func() {
		err := job.Wait()

		q.mu.Lock()
		next.endTime = time.Now()
		if err != nil {
			next.status = QueueStatusFailed
			next.err = err
			q.logger.Error("failed to download region %q. Error: %q\nStack: %s", next.region.ID, err.Error(), err.Stack())
		} else {
			next.status = QueueStatusDone
		}
		q.mu.Unlock()

		q.startNext()
	}()
}
