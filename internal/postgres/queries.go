package postgres

const (
	qGetDocument = `
		SELECT version, body
		FROM documents
		WHERE kind = $1 AND id = $2`

	qInsertDocument = `
		INSERT INTO documents (kind, id, body)
		VALUES ($1, $2, $3)`

	qLockUnique = `
		SELECT pg_advisory_xact_lock(hashtext($1))`

	qUniqueTaken = `
		SELECT EXISTS (
			SELECT 1 FROM documents
			WHERE kind = $1 AND (body ->> $2::text) = $3
		)`

	qLockDocument = `
		SELECT version, body
		FROM documents
		WHERE kind = $1 AND id = $2
		FOR UPDATE`

	qUpdateDocument = `
		UPDATE documents
		SET body = $3, version = version + 1, updated_at = now()
		WHERE kind = $1 AND id = $2
		RETURNING version`

	qFindDocuments = `
		SELECT id, version, body
		FROM documents
		WHERE kind = $1`
)
