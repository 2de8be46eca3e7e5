package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

var ErrShareExpired = errors.New("share link expired")

// ShareGrant is a time-boxed, unauthenticated access capability for exactly
// one stored file. Grants live in process memory only: a restart invalidates
// every outstanding link.
type ShareGrant struct {
	ID        string    `json:"shareId"`
	Filename  string    `json:"filename"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ShareRegistry owns the grant table. The map is shared across request
// goroutines and guarded by the mutex; no ambient global state.
type ShareRegistry struct {
	mu     sync.RWMutex
	grants map[string]ShareGrant
	ttl    time.Duration
}

func NewShareRegistry(ttl time.Duration) *ShareRegistry {
	return &ShareRegistry{
		grants: make(map[string]ShareGrant),
		ttl:    ttl,
	}
}

// Grant records a new share for a stored file. The id is random and carries
// no relation to the target name. Multiple concurrent grants may target the
// same file.
func (r *ShareRegistry) Grant(filename string) ShareGrant {
	now := time.Now()
	grant := ShareGrant{
		ID:        uuid.New().String(),
		Filename:  filename,
		CreatedAt: now,
		ExpiresAt: now.Add(r.ttl),
	}

	r.mu.Lock()
	r.grants[grant.ID] = grant
	r.mu.Unlock()
	return grant
}

// Redeem looks up a grant. Unknown ids report ErrNotFound; expired grants are
// removed and report ErrShareExpired. Expiry is checked here regardless of
// the sweeper, which only exists to keep abandoned links from accumulating.
func (r *ShareRegistry) Redeem(shareID string) (ShareGrant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	grant, ok := r.grants[shareID]
	if !ok {
		return ShareGrant{}, ErrNotFound
	}
	if !time.Now().Before(grant.ExpiresAt) {
		delete(r.grants, shareID)
		return ShareGrant{}, ErrShareExpired
	}
	return grant, nil
}

// Len reports the number of outstanding grants, expired or not.
func (r *ShareRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.grants)
}

// StartSweeper prunes expired grants on an interval until ctx is cancelled.
func (r *ShareRegistry) StartSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed := r.sweep(time.Now()); removed > 0 {
					log.Printf("Removed %d expired share link(s)", removed)
				}
			}
		}
	}()
}

func (r *ShareRegistry) sweep(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, grant := range r.grants {
		if !now.Before(grant.ExpiresAt) {
			delete(r.grants, id)
			removed++
		}
	}
	return removed
}

// shareFile issues a share link for an existing stored file. The target must
// resolve inside the uploads root and exist right now; the grant itself is
// not re-validated until redemption.
func (a *API) shareFile(c *gin.Context) {
	filename := c.Param("filename")

	if _, err := a.storage.Resolve(filename); err != nil {
		respondFileError(c, err)
		return
	}

	grant := a.shares.Grant(filename)
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	shareLink := fmt.Sprintf("%s://%s/api/files/shared/%s", scheme, c.Request.Host, grant.ID)

	RecordEvent("share_created", filename)
	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data": gin.H{
			"shareLink": shareLink,
			"shareId":   grant.ID,
			"expiresAt": grant.ExpiresAt,
		},
	})
}

// sharedFile streams a shared file with no authentication check; possession
// of the unguessable share id is the capability. Expired and unknown links
// are both 404 to the caller.
func (a *API) sharedFile(c *gin.Context) {
	grant, err := a.shares.Redeem(c.Param("shareId"))
	if err != nil {
		if errors.Is(err, ErrShareExpired) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Share link has expired"})
			return
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "Invalid or expired share link"})
		return
	}

	path, err := a.storage.Resolve(grant.Filename)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Shared file not found"})
		return
	}

	RecordEvent("share_redeemed", grant.Filename)
	c.FileAttachment(path, originalNameOf(grant.Filename))
}
