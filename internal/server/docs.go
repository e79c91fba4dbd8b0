package server

// @title devpilot control API
// @version 1.0
// @description Build, test, deploy and service supervision for a multi-service project

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8090
// @BasePath /
// @schemes http
