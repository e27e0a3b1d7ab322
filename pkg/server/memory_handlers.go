package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/emotibot/emotibot/pkg/models"
)

// AddDocumentHandler godoc
//
//	@Summary		Add a document to the memory
//	@Description	chunk, embed and store a plain-text document
//	@Tags			memory
//	@Accept			json
//	@Produce		json
//	@Param			document	body		models.DocumentInput	true	"Document"
//	@Success		200			{string}	string					"OK"
//	@Failure		400			{object}	APIError				"Bad Request"
//	@Failure		413			{object}	APIError				"Request Entity Too Large"
//	@Failure		500			{object}	APIError				"Internal Server Error"
//	@Router			/api/v1/documents [post]
func AddDocumentHandler(appState *models.AppState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var doc models.DocumentInput
		if err := decodeJSON(r, &doc); err != nil {
			renderError(w, err, http.StatusBadRequest)
			return
		}

		if err := appState.Memory.AddDocument(r.Context(), &doc); err != nil {
			renderError(w, err, http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(OKResponse))
	}
}

// AddConversationHandler godoc
//
//	@Summary		Add a conversation turn to the memory
//	@Tags			memory
//	@Accept			json
//	@Produce		json
//	@Param			conversation	body		models.AddConversationRequest	true	"Conversation turn"
//	@Success		200				{string}	string							"OK"
//	@Failure		400				{object}	APIError						"Bad Request"
//	@Failure		500				{object}	APIError						"Internal Server Error"
//	@Router			/api/v1/conversations [post]
func AddConversationHandler(appState *models.AppState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.AddConversationRequest
		if err := decodeJSON(r, &req); err != nil {
			renderError(w, err, http.StatusBadRequest)
			return
		}

		if err := appState.Memory.AddConversation(
			r.Context(),
			req.UserMessage,
			req.BotResponse,
			req.Emotions,
		); err != nil {
			renderError(w, err, http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(OKResponse))
	}
}

// SearchHandler godoc
//
//	@Summary		Search the memory
//	@Description	returns the records nearest to the query, most similar first, or reranked for diversity with search_type mmr
//	@Tags			search
//	@Accept			json
//	@Produce		json
//	@Param			searchPayload	body		models.SearchRequest	true	"Search query"
//	@Success		200				{object}	models.SearchResultPage
//	@Failure		400				{object}	APIError	"Bad Request"
//	@Failure		500				{object}	APIError	"Internal Server Error"
//	@Router			/api/v1/search [post]
func SearchHandler(appState *models.AppState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.SearchRequest
		if err := decodeJSON(r, &req); err != nil {
			renderError(w, err, http.StatusBadRequest)
			return
		}

		var results []models.QueryResult
		switch req.SearchType {
		case models.SearchTypeMMR:
			results = appState.Memory.SearchMMR(
				r.Context(),
				req.Query,
				req.Limit,
				req.Filter,
				req.MMRLambda,
			)
		default:
			results = appState.Memory.SearchSimilar(r.Context(), req.Query, req.Limit, req.Filter)
		}

		if err := encodeJSON(w, models.SearchResultPage{Results: results}); err != nil {
			renderError(w, err, http.StatusInternalServerError)
			return
		}
	}
}

// GetContextHandler godoc
//
//	@Summary		Returns the context block assembled for a query
//	@Tags			search
//	@Produce		json
//	@Param			query		query		string	true	"Query"
//	@Param			max_length	query		integer	false	"Maximum context length in characters"
//	@Success		200			{object}	models.ContextResponse
//	@Failure		400			{object}	APIError	"Bad Request"
//	@Router			/api/v1/context [get]
func GetContextHandler(appState *models.AppState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := strings.TrimSpace(r.URL.Query().Get("query"))
		if query == "" {
			renderError(w, errors.New("query is required"), http.StatusBadRequest)
			return
		}
		maxLength, err := extractQueryStringValueToInt[int](r, "max_length")
		if err != nil {
			renderError(w, err, http.StatusBadRequest)
			return
		}

		resp := models.ContextResponse{
			Query:   query,
			Context: appState.Memory.GetRelevantContext(r.Context(), query, maxLength),
		}
		if err := encodeJSON(w, resp); err != nil {
			renderError(w, err, http.StatusInternalServerError)
			return
		}
	}
}

// GetCollectionStatsHandler godoc
//
//	@Summary		Returns the record counts of the collection
//	@Tags			collection
//	@Produce		json
//	@Success		200	{object}	models.CollectionStats
//	@Failure		500	{object}	APIError	"Internal Server Error"
//	@Router			/api/v1/collection/stats [get]
func GetCollectionStatsHandler(appState *models.AppState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := appState.Memory.GetCollectionStats(r.Context())
		if err != nil {
			renderError(w, err, http.StatusInternalServerError)
			return
		}

		if err := encodeJSON(w, stats); err != nil {
			renderError(w, err, http.StatusInternalServerError)
			return
		}
	}
}

// ClearCollectionHandler godoc
//
//	@Summary		Delete every record of the collection
//	@Tags			collection
//	@Produce		json
//	@Success		200	{string}	string		"OK"
//	@Failure		500	{object}	APIError	"Internal Server Error"
//	@Router			/api/v1/collection [delete]
func ClearCollectionHandler(appState *models.AppState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := appState.Memory.ClearCollection(r.Context()); err != nil {
			renderError(w, err, http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(OKResponse))
	}
}
