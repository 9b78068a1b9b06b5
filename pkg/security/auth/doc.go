/*
Package auth guards the admin API with static API keys.

Keys are configured under server.api_keys; with none configured the admin
API is open, which suits a listener bound to localhost. A client presents a
key as a bearer token or in the X-Api-Key header:

	curl -H "Authorization: Bearer $SCRUFFY_API_KEY" http://localhost:8080/api/v1/jobs

The name of the matched key is stored in the request context and logged,
never the key itself.
*/
package auth
