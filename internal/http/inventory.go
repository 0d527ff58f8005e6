package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/maddiethegm/Home-Inventory-Controller/internal/repository"
)

// resourceDef describes a plain CRUD table.
type resourceDef struct {
	table repository.Table
	// fields are the columns a request body may set.
	fields []string
}

var (
	itemsResource = resourceDef{
		table:  repository.TableItems,
		fields: []string{"Name", "Description", "Location", "Bin", "Quantity", "Image", "Owner"},
	}
	locationsResource = resourceDef{
		table:  repository.TableLocations,
		fields: []string{"Name", "Description", "Building", "Owner", "Image"},
	}
)

type resourceHandler struct {
	*Handler
	def resourceDef
}

func (h *Handler) resource(def resourceDef) resourceHandler {
	return resourceHandler{Handler: h, def: def}
}

// list supports filterColumn, searchValue and exactMatch plus equality on
// any column.
func (r resourceHandler) list(c *gin.Context) {
	rows, err := r.store.ExecuteQuery(c.Request.Context(), r.def.table, repository.OpRead, queryParams(c))
	if err != nil {
		r.storeError(c, err, "Database query failed")
		return
	}
	if rows == nil {
		rows = []repository.Row{}
	}

	r.audit.RecordRead(auditRoute(c), c.Request.URL.Query(), actor(c))
	c.JSON(http.StatusOK, rows)
}

func (r resourceHandler) create(c *gin.Context) {
	params, ok := r.bind(c)
	if !ok {
		return
	}
	if name, _ := params["Name"].(string); strings.TrimSpace(name) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Name is required"})
		return
	}

	id := uuid.NewString()
	params["ID"] = id
	if _, err := r.store.ExecuteQuery(c.Request.Context(), r.def.table, repository.OpCreate, params); err != nil {
		r.storeError(c, err, "Database insertion failed")
		return
	}

	r.audit.Record(auditRoute(c)+"/"+id, params, actor(c))
	c.JSON(http.StatusCreated, gin.H{"success": true, "ID": id})
}

func (r resourceHandler) update(c *gin.Context) {
	params, ok := r.bind(c)
	if !ok {
		return
	}
	if len(params) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nothing to update"})
		return
	}

	params["ID"] = c.Param("id")
	if _, err := r.store.ExecuteQuery(c.Request.Context(), r.def.table, repository.OpUpdate, params); err != nil {
		r.storeError(c, err, "Database update failed")
		return
	}

	r.audit.Record(auditRoute(c), params, actor(c))
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (r resourceHandler) remove(c *gin.Context) {
	params := repository.Params{"ID": c.Param("id")}
	if _, err := r.store.ExecuteQuery(c.Request.Context(), r.def.table, repository.OpDelete, params); err != nil {
		r.storeError(c, err, "Database deletion failed")
		return
	}

	r.audit.Record(auditRoute(c), params, actor(c))
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// bind keeps only the writable fields of a JSON object body.
func (r resourceHandler) bind(c *gin.Context) (repository.Params, bool) {
	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}

	params := repository.Params{}
	for _, field := range r.def.fields {
		if v, ok := body[field]; ok && v != nil {
			params[field] = v
		}
	}
	return params, true
}
