// Package docs provides the OpenAPI documentation served at /swagger.json.
//
// rxdecode API
//
//	@title			rxdecode API
//	@version		1.0
//	@description	Handwritten prescription decoding: dual-recognizer reconciliation, drug name correction and review flagging.
//
//	@contact.name	API Support
//	@contact.url	https://github.com/jackzampolin/rxdecode
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host		localhost:8080
//	@BasePath	/
//
//	@schemes	http https
package docs

//go:generate swag init -g ../cmd/rxdecode/serve.go -o . --outputTypes go --parseDependency --parseInternal
