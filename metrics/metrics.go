package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels.
const (
	Success = "success"
	Failure = "failure"
)

var (
	// AuthOperations counts credential and session operations by outcome.
	AuthOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "user_api_auth_operations_total",
		Help: "Total number of login, refresh, logout and password change attempts",
	}, []string{"operation", "outcome"})

	// MediaUploads counts uploads to the media host by provider and outcome.
	MediaUploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "user_api_media_uploads_total",
		Help: "Total number of media uploads",
	}, []string{"provider", "outcome"})
)

// RecordAuth records one auth operation; a nil err counts as success.
func RecordAuth(operation string, err error) {
	AuthOperations.WithLabelValues(operation, outcome(err)).Inc()
}

// RecordUpload records one media upload; a nil err counts as success.
func RecordUpload(provider string, err error) {
	MediaUploads.WithLabelValues(provider, outcome(err)).Inc()
}

func outcome(err error) string {
	if err != nil {
		return Failure
	}
	return Success
}
