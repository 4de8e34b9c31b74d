/*
Package config reads process settings from the environment, optionally
seeded from a .env file, and builds the logger and store they describe.

	AWS_ACCESS_KEY, AWS_SECRET_KEY  static credentials (optional)
	AWS_REGION                      required for the dynamodb backend
	AWS_DDB_ENDPOINT                endpoint override, e.g. DynamoDB Local
	MAPPER_BACKEND                  dynamodb (default), bolt or memory
	MAPPER_BOLT_PATH                database file of the bolt backend
	MAPPER_LOG_LEVEL                debug, info, warn or error
	MAPPER_LOG_JSON                 true for JSON log lines
	MAPPER_SCHEMA_FILE              default YAML schema file
*/
package config
