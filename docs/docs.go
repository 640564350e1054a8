// Package docs holds the OpenAPI document served under /swagger. It mirrors
// the handler annotations and is replaced by running
// swag init -g cmd/feedsync/main.go -o docs.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/events": {
            "get": {
                "description": "Upgrades to a WebSocket. The server sends a snapshot immediately and again after every cache change; intermediate versions may be skipped when the client reads slowly.",
                "tags": [
                    "Feed"
                ],
                "summary": "Subscribe to cache changes",
                "operationId": "events",
                "responses": {
                    "101": {
                        "description": "Switching Protocols",
                        "schema": {
                            "$ref": "#/definitions/handlers.Event"
                        }
                    },
                    "400": {
                        "description": "Not a WebSocket upgrade",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/favourites": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Favourites"
                ],
                "summary": "List favourites",
                "operationId": "listFavourites",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/handlers.FavouritesResponse"
                        }
                    }
                }
            }
        },
        "/favourites/{id}/toggle": {
            "post": {
                "description": "Adds the post to favourites, or removes it when already present. Send an Idempotency-Key when retrying, otherwise a retry toggles again.",
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Favourites"
                ],
                "summary": "Toggle a favourite",
                "operationId": "toggleFavourite",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Replay key for safe retries",
                        "name": "Idempotency-Key",
                        "in": "header"
                    },
                    {
                        "minimum": 1,
                        "type": "integer",
                        "description": "Post ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/handlers.ToggleFavouriteResponse"
                        }
                    },
                    "400": {
                        "description": "Bad request",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    },
                    "503": {
                        "description": "State still loading",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/posts": {
            "get": {
                "description": "Returns the cached feed in catalog order. With q, only posts matching the query are returned, best match first. Search never contacts the catalog.",
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Feed"
                ],
                "summary": "List cached posts",
                "operationId": "listPosts",
                "parameters": [
                    {
                        "type": "string",
                        "example": "history",
                        "description": "Search term",
                        "name": "q",
                        "in": "query"
                    },
                    {
                        "minimum": 1,
                        "type": "integer",
                        "description": "Maximum posts",
                        "name": "limit",
                        "in": "query"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/handlers.PostsResponse"
                        }
                    }
                }
            }
        },
        "/posts/refresh": {
            "post": {
                "description": "Replaces the cached posts with a fresh catalog page. On failure the previous posts are kept and the feed status carries the error.",
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Feed"
                ],
                "summary": "Refresh the feed from the catalog",
                "operationId": "refreshPosts",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/handlers.PostsResponse"
                        }
                    },
                    "502": {
                        "description": "Catalog unavailable",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        },
                        "headers": {
                            "Retry-After": {
                                "type": "integer",
                                "description": "Seconds before retrying"
                            }
                        }
                    }
                }
            }
        },
        "/posts/{id}": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Feed"
                ],
                "summary": "Get one cached post",
                "operationId": "getPost",
                "parameters": [
                    {
                        "minimum": 1,
                        "type": "integer",
                        "description": "Post ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/handlers.PostView"
                        }
                    },
                    "400": {
                        "description": "Bad request",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    },
                    "404": {
                        "description": "Post not cached",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/posts/{id}/comments": {
            "get": {
                "description": "The post does not have to be in the feed; an unknown post has no comments.",
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Comments"
                ],
                "summary": "List cached comments of a post",
                "operationId": "listComments",
                "parameters": [
                    {
                        "minimum": 1,
                        "type": "integer",
                        "description": "Post ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/handlers.CommentsResponse"
                        }
                    },
                    "400": {
                        "description": "Bad request",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    }
                }
            },
            "post": {
                "description": "Adds a comment authored by the signed-in user at the top of the post's list.",
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Comments"
                ],
                "summary": "Comment on a post",
                "operationId": "addComment",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Replay key for safe retries",
                        "name": "Idempotency-Key",
                        "in": "header"
                    },
                    {
                        "minimum": 1,
                        "type": "integer",
                        "description": "Post ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    },
                    {
                        "description": "Comment",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/handlers.AddCommentRequest"
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "$ref": "#/definitions/handlers.AddCommentResponse"
                        }
                    },
                    "400": {
                        "description": "Empty comment or bad request",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    },
                    "401": {
                        "description": "Not signed in",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    },
                    "503": {
                        "description": "State still loading",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/posts/{id}/comments/refresh": {
            "post": {
                "description": "Replaces the post's cached comments, including locally authored ones, with the catalog's list.",
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Comments"
                ],
                "summary": "Refresh the comments of a post from the catalog",
                "operationId": "refreshComments",
                "parameters": [
                    {
                        "minimum": 1,
                        "type": "integer",
                        "description": "Post ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/handlers.CommentsResponse"
                        }
                    },
                    "400": {
                        "description": "Bad request",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    },
                    "502": {
                        "description": "Catalog unavailable",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    },
                    "503": {
                        "description": "State not hydrated yet",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/posts/{id}/select": {
            "post": {
                "description": "Marks a cached post as the one being viewed.",
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Feed"
                ],
                "summary": "Select a post",
                "operationId": "selectPost",
                "parameters": [
                    {
                        "minimum": 1,
                        "type": "integer",
                        "description": "Post ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/handlers.PostView"
                        }
                    },
                    "400": {
                        "description": "Bad request",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    },
                    "404": {
                        "description": "Post not cached",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/selected": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Feed"
                ],
                "summary": "Get the selected post",
                "operationId": "getSelected",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/handlers.PostView"
                        }
                    },
                    "404": {
                        "description": "Nothing selected",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    }
                }
            },
            "delete": {
                "tags": [
                    "Feed"
                ],
                "summary": "Clear the selection",
                "operationId": "clearSelected",
                "responses": {
                    "204": {
                        "description": "No Content",
                        "schema": {
                            "type": "string"
                        }
                    }
                }
            }
        },
        "/session": {
            "get": {
                "description": "A missing or unreadable session reads as signed out.",
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Session"
                ],
                "summary": "Current session",
                "operationId": "getSession",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/handlers.SessionResponse"
                        }
                    },
                    "503": {
                        "description": "Store unavailable",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    }
                }
            },
            "post": {
                "description": "Stores a local session for username. Comments are authored under this name.",
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Session"
                ],
                "summary": "Sign in",
                "operationId": "login",
                "parameters": [
                    {
                        "description": "Credentials",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/handlers.LoginRequest"
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "$ref": "#/definitions/handlers.SessionResponse"
                        }
                    },
                    "400": {
                        "description": "Bad request",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    },
                    "503": {
                        "description": "Store unavailable",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    }
                }
            },
            "delete": {
                "tags": [
                    "Session"
                ],
                "summary": "Sign out",
                "operationId": "logout",
                "responses": {
                    "204": {
                        "description": "No Content",
                        "schema": {
                            "type": "string"
                        }
                    },
                    "503": {
                        "description": "Store unavailable",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/state": {
            "get": {
                "description": "Returns posts, comments, favourites, the selected post and the feed status in one consistent view.",
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Feed"
                ],
                "summary": "Full cache snapshot",
                "operationId": "getState",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/cache.Snapshot"
                        }
                    }
                }
            }
        }
    },
    "definitions": {
        "cache.FeedStatus": {
            "type": "object",
            "properties": {
                "error": {
                    "type": "string"
                },
                "loading": {
                    "type": "boolean"
                },
                "refreshedAt": {
                    "type": "string"
                }
            }
        },
        "cache.Snapshot": {
            "type": "object",
            "properties": {
                "comments": {
                    "type": "object",
                    "additionalProperties": {
                        "type": "array",
                        "items": {
                            "$ref": "#/definitions/domain.Comment"
                        }
                    }
                },
                "favourites": {
                    "type": "array",
                    "items": {
                        "type": "integer"
                    }
                },
                "feed": {
                    "$ref": "#/definitions/cache.FeedStatus"
                },
                "posts": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/domain.Post"
                    }
                },
                "selectedPost": {
                    "$ref": "#/definitions/domain.Post"
                },
                "version": {
                    "type": "integer"
                }
            }
        },
        "domain.Comment": {
            "type": "object",
            "properties": {
                "body": {
                    "type": "string"
                },
                "id": {
                    "type": "integer"
                },
                "likes": {
                    "type": "integer"
                },
                "postId": {
                    "type": "integer"
                },
                "user": {
                    "$ref": "#/definitions/domain.CommentUser"
                }
            }
        },
        "domain.CommentUser": {
            "type": "object",
            "properties": {
                "fullName": {
                    "type": "string"
                },
                "id": {
                    "type": "integer"
                },
                "username": {
                    "type": "string"
                }
            }
        },
        "domain.Post": {
            "type": "object",
            "properties": {
                "body": {
                    "type": "string"
                },
                "id": {
                    "type": "integer"
                },
                "reactions": {
                    "$ref": "#/definitions/domain.Reactions"
                },
                "tags": {
                    "type": "array",
                    "items": {
                        "type": "string"
                    }
                },
                "title": {
                    "type": "string"
                },
                "userId": {
                    "type": "integer"
                },
                "views": {
                    "type": "integer"
                }
            }
        },
        "domain.Reactions": {
            "type": "object",
            "properties": {
                "dislikes": {
                    "type": "integer"
                },
                "likes": {
                    "type": "integer"
                }
            }
        },
        "domain.SessionUser": {
            "type": "object",
            "properties": {
                "email": {
                    "type": "string"
                },
                "id": {
                    "type": "integer"
                },
                "username": {
                    "type": "string"
                }
            }
        },
        "handlers.AddCommentRequest": {
            "type": "object",
            "properties": {
                "body": {
                    "type": "string",
                    "example": "Great read!"
                }
            }
        },
        "handlers.AddCommentResponse": {
            "type": "object",
            "properties": {
                "comment": {
                    "$ref": "#/definitions/domain.Comment"
                },
                "warning": {
                    "type": "string"
                }
            }
        },
        "handlers.CommentsResponse": {
            "type": "object",
            "properties": {
                "comments": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/domain.Comment"
                    }
                },
                "postId": {
                    "type": "integer",
                    "example": 3
                },
                "warning": {
                    "type": "string"
                }
            }
        },
        "handlers.ErrorResponse": {
            "type": "object",
            "properties": {
                "code": {
                    "type": "string",
                    "example": "not_found"
                },
                "message": {
                    "type": "string",
                    "example": "post not found"
                },
                "request_id": {
                    "type": "string",
                    "example": "123e4567-e89b-12d3-a456-426614174000"
                }
            }
        },
        "handlers.Event": {
            "type": "object",
            "properties": {
                "snapshot": {
                    "$ref": "#/definitions/cache.Snapshot"
                },
                "type": {
                    "type": "string",
                    "example": "snapshot"
                }
            }
        },
        "handlers.FavouritesResponse": {
            "type": "object",
            "properties": {
                "ids": {
                    "type": "array",
                    "items": {
                        "type": "integer"
                    }
                },
                "posts": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/domain.Post"
                    }
                }
            }
        },
        "handlers.LoginRequest": {
            "type": "object",
            "required": [
                "username"
            ],
            "properties": {
                "email": {
                    "type": "string",
                    "maxLength": 254,
                    "example": "emily.johnson@x.dummyjson.com"
                },
                "username": {
                    "type": "string",
                    "maxLength": 64,
                    "example": "emilys"
                }
            }
        },
        "handlers.PostView": {
            "type": "object",
            "properties": {
                "body": {
                    "type": "string"
                },
                "favourite": {
                    "type": "boolean"
                },
                "id": {
                    "type": "integer"
                },
                "reactions": {
                    "$ref": "#/definitions/domain.Reactions"
                },
                "tags": {
                    "type": "array",
                    "items": {
                        "type": "string"
                    }
                },
                "title": {
                    "type": "string"
                },
                "userId": {
                    "type": "integer"
                },
                "views": {
                    "type": "integer"
                }
            }
        },
        "handlers.PostsResponse": {
            "type": "object",
            "properties": {
                "feed": {
                    "$ref": "#/definitions/cache.FeedStatus"
                },
                "posts": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/domain.Post"
                    }
                },
                "query": {
                    "type": "string",
                    "example": "history"
                }
            }
        },
        "handlers.SessionResponse": {
            "type": "object",
            "properties": {
                "signedIn": {
                    "type": "boolean"
                },
                "user": {
                    "$ref": "#/definitions/domain.SessionUser"
                }
            }
        },
        "handlers.ToggleFavouriteResponse": {
            "type": "object",
            "properties": {
                "favourite": {
                    "type": "boolean",
                    "example": true
                },
                "postId": {
                    "type": "integer",
                    "example": 3
                },
                "warning": {
                    "type": "string"
                }
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "feedsync API",
	Description:      "Local state sync layer for a content feed: cached posts, comments, favourites and session.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
