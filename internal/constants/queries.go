package constants

const (
	GetApiKeyStatus = `
	SELECT id, chamber_id, status FROM api_keys WHERE id = $1
	`

	InsertApiKey = `
	INSERT INTO api_keys (id, chamber_id, status, created_at, updated_at)
	VALUES ($1, $2, true, now(), now()) RETURNING id
	`
)
