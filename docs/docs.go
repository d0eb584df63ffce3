// Package docs - описание Route Composer API для swagger UI (/swagger/index.html).
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "license": {"name": "MIT", "url": "https://opensource.org/licenses/MIT"},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/api/v1/health": {"get": {"tags": ["Health"], "summary": "Health check", "produces": ["application/json"],
            "responses": {"200": {"description": "OK"}, "503": {"description": "Service Unavailable"}}}},
        "/api/v1/sessions": {"post": {"tags": ["Sessions"], "summary": "Создать рабочую сессию",
            "consumes": ["application/json"], "produces": ["application/json"],
            "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}}}},
        "/api/v1/sessions/{id}": {
            "get": {"tags": ["Sessions"], "summary": "Состояние сессии",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}},
            "delete": {"tags": ["Sessions"], "summary": "Удалить сессию",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"204": {"description": "No Content"}, "404": {"description": "Not Found"}}}},
        "/api/v1/sessions/{id}/hubs/{code}": {
            "post": {"tags": ["Sessions"], "summary": "Выбрать полюс",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true},
                               {"type": "string", "name": "code", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}, "404": {"description": "Not Found"}}},
            "delete": {"tags": ["Sessions"], "summary": "Снять выбор полюса",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true},
                               {"type": "string", "name": "code", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}},
        "/api/v1/sessions/{id}/hubs/{code}/airstrip": {
            "put": {"tags": ["Sessions"], "summary": "Выбрать полосу полюса",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true},
                               {"type": "string", "name": "code", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}}},
        "/api/v1/sessions/{id}/satellites/{code}": {
            "post": {"tags": ["Sessions"], "summary": "Выбрать периферию",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true},
                               {"type": "string", "name": "code", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}, "404": {"description": "Not Found"}}},
            "delete": {"tags": ["Sessions"], "summary": "Снять выбор периферии",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true},
                               {"type": "string", "name": "code", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}},
        "/api/v1/sessions/{id}/satellites/{code}/hub": {
            "put": {"tags": ["Sessions"], "summary": "Закрепить периферию за полюсом",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true},
                               {"type": "string", "name": "code", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}}},
        "/api/v1/sessions/{id}/configuration": {
            "patch": {"tags": ["Sessions"], "summary": "Изменить конфигурацию маршрута",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}}},
        "/api/v1/sessions/{id}/route": {
            "post": {"tags": ["Sessions"], "summary": "Рассчитать и отобразить маршрут",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}, "404": {"description": "Not Found"}}},
            "get": {"tags": ["Sessions"], "summary": "Отображаемый маршрут",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}},
        "/api/v1/sessions/{id}/route/export": {
            "get": {"tags": ["Sessions"], "summary": "Экспорт отображаемого маршрута",
                "produces": ["application/json", "application/geo+json"],
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true},
                               {"type": "string", "name": "format", "in": "query", "enum": ["json", "geojson"]}],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}, "404": {"description": "Not Found"}}}},
        "/api/v1/routes/compute": {
            "post": {"tags": ["Routes"], "summary": "Рассчитать маршрут по кодам",
                "consumes": ["application/json"], "produces": ["application/json", "application/geo+json"],
                "parameters": [{"type": "string", "name": "format", "in": "query", "enum": ["json", "geojson"]}],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}, "404": {"description": "Not Found"}}}},
        "/api/v1/gateway/stats": {
            "get": {"tags": ["Gateway"], "summary": "Статистика шлюза провайдера",
                "responses": {"200": {"description": "OK"}}}}
    }
}`

// SwaggerInfo - метаданные, подставляемые в docTemplate
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{"http", "https"},
	Title:            "Route Composer API",
	Description:      "Сервис построения многоэтапных маршрутов по полюсам и перифериям.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
