// Package background runs the maintenance loop: the shelf auditor, which
// detects drift between the books table and user shelves, and the purge of
// expired password reset tokens. Neither task repairs anything itself; the
// auditor only reports, keeping writes in the request path.
package background

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/user/bookmarket-go/auth"
	"github.com/user/bookmarket-go/shelf"
)

const (
	auditTickerDuration = 15 * time.Minute
	auditWorkerCount    = 3
	auditQueryTimeout   = 30 * time.Second
)

// shelfToAudit is one user's shelf pulled for inspection.
type shelfToAudit struct {
	UserID int
	Shelf  shelf.Shelf
}

// auditResult is what a worker found for one user.
type auditResult struct {
	UserID   int
	Problems []string
}

// StartShelfAuditor launches the periodic audit loop. It returns
// immediately; closing stopChan shuts the loop down and waits for
// in-flight workers.
func StartShelfAuditor(dbPool *pgxpool.Pool, authService *auth.AuthService, stopChan <-chan struct{}) {
	shelvesChan := make(chan shelfToAudit, 10)
	resultsChan := make(chan auditResult, 10)

	var mainWg sync.WaitGroup
	var workersWg sync.WaitGroup

	go func() {
		ticker := time.NewTicker(auditTickerDuration)
		defer ticker.Stop()

		for i := 0; i < auditWorkerCount; i++ {
			workersWg.Add(1)
			go func(workerID int) {
				defer workersWg.Done()
				for item := range shelvesChan {
					ctx, cancel := context.WithTimeout(context.Background(), auditQueryTimeout)
					problems := auditShelf(ctx, dbPool, item)
					cancel()
					if len(problems) > 0 {
						resultsChan <- auditResult{UserID: item.UserID, Problems: problems}
					}
				}
			}(i)
		}

		mainWg.Add(1)
		go func() {
			defer mainWg.Done()
			for result := range resultsChan {
				for _, problem := range result.Problems {
					log.Warn().Int("user_id", result.UserID).Str("problem", problem).Msg("shelf audit finding")
				}
			}
		}()

		for {
			select {
			case <-ticker.C:
				runAuditPass(dbPool, authService, shelvesChan)
			case <-stopChan:
				log.Info().Msg("shelf auditor stopping")
				close(shelvesChan)
				workersWg.Wait()
				close(resultsChan)
				mainWg.Wait()
				log.Info().Msg("shelf auditor stopped")
				return
			}
		}
	}()
}

// runAuditPass purges expired reset tokens, then feeds every shelf to the
// workers.
func runAuditPass(dbPool *pgxpool.Pool, authService *auth.AuthService, shelvesChan chan<- shelfToAudit) {
	ctx, cancel := context.WithTimeout(context.Background(), auditQueryTimeout)
	defer cancel()

	if purged, err := authService.PurgeExpiredResetTokens(ctx); err != nil {
		log.Error().Err(err).Msg("failed to purge expired reset tokens")
	} else if purged > 0 {
		log.Info().Int64("purged", purged).Msg("expired reset tokens cleared")
	}

	rows, err := dbPool.Query(ctx, "SELECT id, shelf FROM users")
	if err != nil {
		log.Error().Err(err).Msg("failed to fetch shelves for audit")
		return
	}
	defer rows.Close()

	for rows.Next() {
		var item shelfToAudit
		var raw []byte
		if err := rows.Scan(&item.UserID, &raw); err != nil {
			log.Error().Err(err).Msg("failed to scan shelf row")
			continue
		}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &item.Shelf); err != nil {
				log.Error().Err(err).Int("user_id", item.UserID).Msg("failed to decode shelf")
				continue
			}
		}
		shelvesChan <- item
	}
	if err := rows.Err(); err != nil {
		log.Error().Err(err).Msg("failed to read shelf rows")
	}
}

// auditShelf checks one user's shelf against the books table: every
// shelved id must reference an existing book owned by that user and
// sitting in the same category bucket.
func auditShelf(ctx context.Context, dbPool *pgxpool.Pool, item shelfToAudit) []string {
	var problems []string

	for _, category := range shelf.Categories() {
		for _, bookID := range item.Shelf.Bucket(category) {
			var ownerID int
			var bookCategory string
			err := dbPool.QueryRow(ctx,
				"SELECT user_id, category FROM books WHERE id = $1", bookID).
				Scan(&ownerID, &bookCategory)
			if err != nil {
				problems = append(problems, "shelved book "+bookID+" does not exist in the catalog")
				continue
			}
			if ownerID != item.UserID {
				problems = append(problems, "shelved book "+bookID+" is owned by another user")
			}
			if bookCategory != string(category) {
				problems = append(problems,
					"shelved book "+bookID+" sits in bucket "+string(category)+" but is listed as "+bookCategory)
			}
		}
	}

	// A book listed by this user must also be somewhere on the shelf.
	rows, err := dbPool.Query(ctx, "SELECT id FROM books WHERE user_id = $1", item.UserID)
	if err != nil {
		return problems
	}
	defer rows.Close()
	for rows.Next() {
		var bookID string
		if err := rows.Scan(&bookID); err != nil {
			continue
		}
		if !item.Shelf.Contains(bookID) {
			problems = append(problems, "listed book "+bookID+" is missing from the shelf")
		}
	}
	return problems
}
