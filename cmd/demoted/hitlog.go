package main

import (
	"crypto/rand"
	"os"
	"time"

	"github.com/akamensky/base58"
	log "github.com/sirupsen/logrus"
	"github.com/timshannon/badgerhold/v4"
)

// Hit is one recorded request, indexed by a short random ID.
type Hit struct {
	ID   string `badgerhold:"key"`
	Path string
	Time time.Time
}

// HitLog persists the requests the demo service saw across restarts. Its
// directory is the reason demoted cares about post-drop file ownership and
// is the read-write path handed to the Landlock restriction.
type HitLog struct {
	bh *badgerhold.Store
}

// OpenHitLog opens or initializes the hit log below dir.
func OpenHitLog(dir string) (*HitLog, error) {
	if _, stat := os.Stat(dir); os.IsNotExist(stat) {
		if err := os.Mkdir(dir, 0o700); err != nil {
			return nil, err
		}
	}

	opts := badgerhold.DefaultOptions
	opts.Dir = dir
	opts.ValueDir = dir
	opts.Logger = log.StandardLogger()

	bh, err := badgerhold.Open(opts)
	if err != nil {
		return nil, err
	}

	return &HitLog{bh: bh}, nil
}

// Record stores a hit for the given request path and returns its ID.
func (h *HitLog) Record(path string) (string, error) {
	idBuff := make([]byte, 8)
	if _, err := rand.Read(idBuff); err != nil {
		return "", err
	}
	id := base58.Encode(idBuff)

	hit := Hit{
		ID:   id,
		Path: path,
		Time: time.Now(),
	}
	if err := h.bh.Insert(id, hit); err != nil {
		return "", err
	}

	return id, nil
}

// Recent returns up to n hits, newest first.
func (h *HitLog) Recent(n int) ([]Hit, error) {
	var hits []Hit
	err := h.bh.Find(&hits,
		badgerhold.Where("Time").Gt(time.Time{}).SortBy("Time").Reverse().Limit(n))
	return hits, err
}

// Close the underlying database.
func (h *HitLog) Close() error {
	return h.bh.Close()
}
