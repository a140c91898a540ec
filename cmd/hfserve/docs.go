package main

// General API documentation for swaggo. Run `swag init` to generate docs.
//
// @title           hf-codecomplete-server API
// @version         1.0
// @description     HTTP front end for a text-generation inference engine, wire-compatible with HuggingFace code-completion clients.
//
// @contact.name   hf-codecomplete-server maintainers
// @contact.url    https://github.com/tabbas97/hf-codecomplete-server
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
