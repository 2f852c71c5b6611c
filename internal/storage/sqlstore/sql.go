package sqlstore

// -----------------------------------------------------------------------------
// SCHEMA
// -----------------------------------------------------------------------------

// MySQL has no CREATE INDEX IF NOT EXISTS; indexes live inside CREATE TABLE.
var schemaMySQL = []schemaStmt{
	{"sources", `
CREATE TABLE IF NOT EXISTS sources (
  id         BIGINT       NOT NULL AUTO_INCREMENT PRIMARY KEY,
  name       VARCHAR(100) NOT NULL,
  app_name   VARCHAR(255) NULL,
  created_at TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE KEY uq_sources_name (name)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`},
	{"reviews", `
CREATE TABLE IF NOT EXISTS reviews (
  review_id       VARCHAR(255) NOT NULL PRIMARY KEY,
  source_id       BIGINT       NOT NULL,
  review_text     TEXT         NOT NULL,
  rating          TINYINT      NULL,
  review_date     DATE         NULL,
  sentiment_label VARCHAR(16)  NULL,
  sentiment_score DOUBLE       NULL,
  provenance      VARCHAR(100) NULL,
  themes          TEXT         NULL,
  keywords        TEXT         NULL,
  created_at      TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updated_at      TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
  CONSTRAINT chk_reviews_rating CHECK (rating IS NULL OR rating BETWEEN 1 AND 5),
  CONSTRAINT chk_reviews_sentiment CHECK (sentiment_label IS NULL OR sentiment_label IN ('positive','negative','neutral')),
  CONSTRAINT fk_reviews_source FOREIGN KEY (source_id) REFERENCES sources(id),
  KEY idx_reviews_source_id (source_id),
  KEY idx_reviews_rating (rating),
  KEY idx_reviews_sentiment (sentiment_label),
  KEY idx_reviews_date (review_date)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`},
	{"review_statistics", `
CREATE OR REPLACE VIEW review_statistics AS
SELECT
  s.name                    AS source_name,
  s.app_name                AS app_name,
  COUNT(r.review_id)        AS total_reviews,
  CAST(AVG(r.rating) AS DOUBLE) AS average_rating,
  CAST(COALESCE(SUM(CASE WHEN r.sentiment_label = 'positive' THEN 1 ELSE 0 END), 0) AS SIGNED) AS positive_count,
  CAST(COALESCE(SUM(CASE WHEN r.sentiment_label = 'negative' THEN 1 ELSE 0 END), 0) AS SIGNED) AS negative_count,
  CAST(COALESCE(SUM(CASE WHEN r.sentiment_label = 'neutral'  THEN 1 ELSE 0 END), 0) AS SIGNED) AS neutral_count
FROM sources s
LEFT JOIN reviews r ON r.source_id = s.id
GROUP BY s.id, s.name, s.app_name`},
}

var schemaPostgres = []schemaStmt{
	{"sources", `
CREATE TABLE IF NOT EXISTS sources (
  id         BIGSERIAL    PRIMARY KEY,
  name       VARCHAR(100) NOT NULL UNIQUE,
  app_name   VARCHAR(255),
  created_at TIMESTAMPTZ  NOT NULL DEFAULT CURRENT_TIMESTAMP
)`},
	{"reviews", `
CREATE TABLE IF NOT EXISTS reviews (
  review_id       VARCHAR(255)     PRIMARY KEY,
  source_id       BIGINT           NOT NULL REFERENCES sources(id),
  review_text     TEXT             NOT NULL,
  rating          SMALLINT         CHECK (rating IS NULL OR rating BETWEEN 1 AND 5),
  review_date     DATE,
  sentiment_label VARCHAR(16)      CHECK (sentiment_label IS NULL OR sentiment_label IN ('positive','negative','neutral')),
  sentiment_score DOUBLE PRECISION,
  provenance      VARCHAR(100),
  themes          TEXT,
  keywords        TEXT,
  created_at      TIMESTAMPTZ      NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updated_at      TIMESTAMPTZ      NOT NULL DEFAULT CURRENT_TIMESTAMP
)`},
	{"idx_reviews_source_id", `CREATE INDEX IF NOT EXISTS idx_reviews_source_id ON reviews(source_id)`},
	{"idx_reviews_rating", `CREATE INDEX IF NOT EXISTS idx_reviews_rating ON reviews(rating)`},
	{"idx_reviews_sentiment", `CREATE INDEX IF NOT EXISTS idx_reviews_sentiment ON reviews(sentiment_label)`},
	{"idx_reviews_date", `CREATE INDEX IF NOT EXISTS idx_reviews_date ON reviews(review_date)`},
	{"review_statistics", `
CREATE OR REPLACE VIEW review_statistics AS
SELECT
  s.name                                  AS source_name,
  s.app_name                              AS app_name,
  COUNT(r.review_id)                      AS total_reviews,
  CAST(AVG(r.rating) AS DOUBLE PRECISION) AS average_rating,
  COUNT(*) FILTER (WHERE r.sentiment_label = 'positive') AS positive_count,
  COUNT(*) FILTER (WHERE r.sentiment_label = 'negative') AS negative_count,
  COUNT(*) FILTER (WHERE r.sentiment_label = 'neutral')  AS neutral_count
FROM sources s
LEFT JOIN reviews r ON r.source_id = s.id
GROUP BY s.id, s.name, s.app_name`},
}

var schemaSQLite = []schemaStmt{
	{"sources", `
CREATE TABLE IF NOT EXISTS sources (
  id         INTEGER PRIMARY KEY AUTOINCREMENT,
  name       TEXT    NOT NULL UNIQUE,
  app_name   TEXT,
  created_at TEXT    NOT NULL DEFAULT CURRENT_TIMESTAMP
)`},
	{"reviews", `
CREATE TABLE IF NOT EXISTS reviews (
  review_id       TEXT    PRIMARY KEY,
  source_id       INTEGER NOT NULL REFERENCES sources(id),
  review_text     TEXT    NOT NULL,
  rating          INTEGER CHECK (rating IS NULL OR rating BETWEEN 1 AND 5),
  review_date     TEXT,
  sentiment_label TEXT    CHECK (sentiment_label IS NULL OR sentiment_label IN ('positive','negative','neutral')),
  sentiment_score REAL,
  provenance      TEXT,
  themes          TEXT,
  keywords        TEXT,
  created_at      TEXT    NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updated_at      TEXT    NOT NULL DEFAULT CURRENT_TIMESTAMP
)`},
	{"idx_reviews_source_id", `CREATE INDEX IF NOT EXISTS idx_reviews_source_id ON reviews(source_id)`},
	{"idx_reviews_rating", `CREATE INDEX IF NOT EXISTS idx_reviews_rating ON reviews(rating)`},
	{"idx_reviews_sentiment", `CREATE INDEX IF NOT EXISTS idx_reviews_sentiment ON reviews(sentiment_label)`},
	{"idx_reviews_date", `CREATE INDEX IF NOT EXISTS idx_reviews_date ON reviews(review_date)`},
	{"review_statistics", `
CREATE VIEW IF NOT EXISTS review_statistics AS
SELECT
  s.name                  AS source_name,
  s.app_name              AS app_name,
  COUNT(r.review_id)      AS total_reviews,
  AVG(r.rating)           AS average_rating,
  COALESCE(SUM(CASE WHEN r.sentiment_label = 'positive' THEN 1 ELSE 0 END), 0) AS positive_count,
  COALESCE(SUM(CASE WHEN r.sentiment_label = 'negative' THEN 1 ELSE 0 END), 0) AS negative_count,
  COALESCE(SUM(CASE WHEN r.sentiment_label = 'neutral'  THEN 1 ELSE 0 END), 0) AS neutral_count
FROM sources s
LEFT JOIN reviews r ON r.source_id = s.id
GROUP BY s.id, s.name, s.app_name`},
}

// -----------------------------------------------------------------------------
// WRITES
// -----------------------------------------------------------------------------

// Inserting an existing source leaves it untouched.
const insertSourceMySQL = `
INSERT INTO sources (name, app_name)
VALUES (?, ?)
ON DUPLICATE KEY UPDATE name = name
`

const insertSourceStd = `
INSERT INTO sources (name, app_name)
VALUES (?, ?)
ON CONFLICT (name) DO NOTHING
`

const selectSourceIDSQL = `SELECT id FROM sources WHERE name = ?`

const insertReviewsPrefix = "INSERT INTO reviews\n" +
	"  (review_id, source_id, review_text, rating, review_date, sentiment_label, sentiment_score, provenance, themes, keywords)\n" +
	"VALUES "

const reviewRowPlaceholders = "(?,?,?,?,?,?,?,?,?,?)"

// Last write wins on annotations; identity, text and source stay as first written.
const insertReviewsOnDupMySQL = " ON DUPLICATE KEY UPDATE\n" +
	"  rating          = VALUES(rating),\n" +
	"  review_date     = VALUES(review_date),\n" +
	"  sentiment_label = VALUES(sentiment_label),\n" +
	"  sentiment_score = VALUES(sentiment_score),\n" +
	"  provenance      = VALUES(provenance),\n" +
	"  themes          = VALUES(themes),\n" +
	"  keywords        = VALUES(keywords),\n" +
	"  updated_at      = CURRENT_TIMESTAMP\n"

const insertReviewsOnConflictStd = " ON CONFLICT (review_id) DO UPDATE SET\n" +
	"  rating          = excluded.rating,\n" +
	"  review_date     = excluded.review_date,\n" +
	"  sentiment_label = excluded.sentiment_label,\n" +
	"  sentiment_score = excluded.sentiment_score,\n" +
	"  provenance      = excluded.provenance,\n" +
	"  themes          = excluded.themes,\n" +
	"  keywords        = excluded.keywords,\n" +
	"  updated_at      = CURRENT_TIMESTAMP\n"

// -----------------------------------------------------------------------------
// READ QUERIES
// -----------------------------------------------------------------------------

const countReviewsSQL = `
SELECT COUNT(*)
FROM reviews r
JOIN sources s ON s.id = r.source_id
WHERE s.name = ?`

const countExistingPrefix = `SELECT COUNT(*) FROM reviews WHERE review_id IN `

const sourceTotalsSQL = `
SELECT source_name, app_name, total_reviews, average_rating, positive_count, negative_count, neutral_count
FROM review_statistics
ORDER BY source_name`

const listReviewsSQL = `
SELECT r.review_id, s.name, r.review_text, r.rating, r.review_date,
       r.sentiment_label, r.sentiment_score, r.provenance, r.themes, r.keywords
FROM reviews r
JOIN sources s ON s.id = r.source_id`
