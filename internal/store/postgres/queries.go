package postgres

// Documents live whole in a JSONB column; job_id is lifted out as the
// primary key so that id assignment and lookups stay relational.
const querySchema = `
CREATE TABLE IF NOT EXISTS jobs (
    job_id BIGINT PRIMARY KEY,
    doc    JSONB  NOT NULL
);
CREATE INDEX IF NOT EXISTS jobs_average_salary_idx ON jobs (((doc->>'average_salary')::bigint));
CREATE TABLE IF NOT EXISTS industries (
    industry_id   BIGINT PRIMARY KEY,
    industry_name TEXT   NOT NULL
);
`

const queryGetJob = `
SELECT job_id, doc FROM jobs WHERE job_id = $1
`

// queryFindEqualFold is completed with a predicate from fieldPredicates.
const queryFindEqualFold = `
SELECT job_id, doc FROM jobs
WHERE %s
ORDER BY job_id
`

const querySkillsPredicate = `EXISTS (
    SELECT 1
    FROM jsonb_array_elements_text(
        CASE WHEN jsonb_typeof(doc->'skills') = 'array' THEN doc->'skills' ELSE '[]'::jsonb END
    ) AS s(v)
    WHERE lower(s.v) = ANY($1)
)`

const queryFindSalaryRange = `
SELECT job_id, doc FROM jobs
WHERE (doc->>'average_salary')::bigint BETWEEN $1 AND $2
ORDER BY job_id
`

const queryAll = `
SELECT job_id, doc FROM jobs ORDER BY job_id
`

const queryCountByIndustry = `
SELECT doc->'company'->>'industry_name' AS industry, count(*) AS job_count
FROM jobs
GROUP BY 1
ORDER BY job_count DESC
`

const queryTopBySalary = `
SELECT job_id, doc FROM jobs
ORDER BY (doc->>'average_salary')::bigint DESC NULLS LAST, job_id ASC
LIMIT $1
`

const queryDistinctCompanies = `
SELECT DISTINCT doc->'company'->>'name'
FROM jobs
WHERE doc->'company'->>'name' IS NOT NULL
`

// queryLockJobIDs serializes id assignment for the rest of the transaction.
const queryLockJobIDs = `
SELECT pg_advisory_xact_lock($1)
`

const queryNextJobID = `
SELECT COALESCE(MAX(job_id), 0) + 1 FROM jobs
`

const queryInsertJob = `
INSERT INTO jobs (job_id, doc) VALUES ($1, $2)
`

// queryUpdateJob merges the patch object into the document and only touches
// the row when the merge changes it.
const queryUpdateJob = `
UPDATE jobs
SET doc = doc || $2::jsonb
WHERE job_id = $1
  AND doc || $2::jsonb IS DISTINCT FROM doc
`

const queryJobExists = `
SELECT EXISTS (SELECT 1 FROM jobs WHERE job_id = $1)
`

const queryDeleteJob = `
DELETE FROM jobs WHERE job_id = $1
`

const queryTruncate = `
TRUNCATE jobs, industries
`

const queryTryImportLock = `
SELECT pg_try_advisory_lock($1)
`

const queryImportUnlock = `
SELECT pg_advisory_unlock($1)
`
