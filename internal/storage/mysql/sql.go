package mysql

const upsertSnapshotSQL = `
INSERT INTO fetch_snapshots
  (id, app_id, sort_order, requested, review_count, partial, fetched_at, expires_at, payload)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  review_count = VALUES(review_count),
  partial      = VALUES(partial),
  expires_at   = VALUES(expires_at),
  payload      = VALUES(payload)
`

// Expired rows are dropped on write; reads also filter on expires_at.
const purgeExpiredSQL = `DELETE FROM fetch_snapshots WHERE expires_at IS NOT NULL AND expires_at < ?`

const getSnapshotSQL = `
SELECT payload
FROM fetch_snapshots
WHERE id = ?
  AND (expires_at IS NULL OR expires_at >= ?)
`
