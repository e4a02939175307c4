package sqlrepo

const mysqlSchemaSQL = `
CREATE TABLE IF NOT EXISTS saved_listings (
  id              BIGINT      NOT NULL AUTO_INCREMENT PRIMARY KEY,
  url             TEXT        NOT NULL,
  address         TEXT        NOT NULL,
  price           DOUBLE      NULL,
  estimated_price DOUBLE      NULL,
  confidence      DOUBLE      NULL,
  label           VARCHAR(32) NOT NULL,
  saved_at        VARCHAR(32) NOT NULL,
  KEY idx_saved_listings_saved_at (saved_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4
`

var sqliteSchemaSQL = []string{`
CREATE TABLE IF NOT EXISTS saved_listings (
  id              INTEGER PRIMARY KEY AUTOINCREMENT,
  url             TEXT NOT NULL,
  address         TEXT NOT NULL,
  price           REAL,
  estimated_price REAL,
  confidence      REAL,
  label           TEXT NOT NULL,
  saved_at        TEXT NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_saved_listings_saved_at ON saved_listings (saved_at)`,
}

const insertSavedSQL = `
INSERT INTO saved_listings
  (url, address, price, estimated_price, confidence, label, saved_at)
VALUES
  (?, ?, ?, ?, ?, ?, ?)
`

// saved_at is fixed-width UTC text, so ordering by it is chronological.
const listSavedSQL = `
SELECT id, url, address, price, estimated_price, confidence, label, saved_at
FROM saved_listings
ORDER BY saved_at DESC, id DESC
`

const deleteSavedSQL = `DELETE FROM saved_listings WHERE id = ?`
