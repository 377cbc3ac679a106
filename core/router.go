package core

import (
	"errors"
	"html/template"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterDeps are the services the HTTP layer talks to.
type RouterDeps struct {
	Auth     *AuthService
	Todos    TodoRepository
	Status   *StatusService // nil when Redis is not configured
	Gatherer prometheus.Gatherer
}

// NewRouter constructs the Gin engine with routes wired.
func NewRouter(cfg Config, deps RouterDeps) *gin.Engine {
	startedAt := time.Now()
	r := gin.Default()
	r.SetHTMLTemplate(template.Must(LoadTemplates()))

	// Global middleware: request id -> identity
	r.Use(RequestIDMiddleware())
	r.Use(IdentityMiddleware(cfg, deps.Auth))

	mountStatic(r, cfg)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/status", func(c *gin.Context) {
		st, err := deps.Status.Collect(c.Request.Context(), startedAt)
		if err != nil {
			log.Printf("[status] collect failed request_id=%s: %v", RequestIDFromContext(c.Request.Context()), err)
			respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to load status")
			return
		}
		c.JSON(http.StatusOK, st.Public())
	})

	if deps.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	r.GET("/", func(c *gin.Context) {
		user := currentUser(c)
		if user == nil {
			c.HTML(http.StatusOK, "index", pageView{})
			return
		}
		items, err := deps.Todos.List(c.Request.Context(), user.ID)
		if err != nil {
			internalError(c, "list todos", err)
			return
		}
		c.HTML(http.StatusOK, "index", newListView(user, items))
	})

	users := r.Group("/users")
	{
		users.GET("/new", func(c *gin.Context) {
			c.HTML(http.StatusOK, "signup_page", pageView{User: currentUser(c)})
		})

		users.POST("/new", func(c *gin.Context) {
			var form SignupForm
			if err := c.ShouldBind(&form); err != nil {
				respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid form")
				return
			}
			sess, err := deps.Auth.Signup(c.Request.Context(), form)
			var verr *ValidationError
			switch {
			case errors.As(err, &verr):
				renderForm(c, "signup", pageView{User: currentUser(c), Form: newFormView(form.Email, verr)})
			case err != nil:
				internalError(c, "signup", err)
			default:
				SetSessionCookie(c.Writer, cfg, sess)
				redirectTo(c, "/")
			}
		})
	}

	sessions := r.Group("/sessions")
	{
		sessions.GET("/login", func(c *gin.Context) {
			c.HTML(http.StatusOK, "login_page", pageView{User: currentUser(c)})
		})

		sessions.POST("/login", func(c *gin.Context) {
			var form LoginForm
			if err := c.ShouldBind(&form); err != nil {
				respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid form")
				return
			}
			sess, err := deps.Auth.Login(c.Request.Context(), form)
			var verr *ValidationError
			switch {
			case errors.As(err, &verr):
				renderForm(c, "login", pageView{User: currentUser(c), Form: newFormView(form.Email, verr)})
			case err != nil:
				internalError(c, "login", err)
			default:
				SetSessionCookie(c.Writer, cfg, sess)
				redirectTo(c, "/")
			}
		})

		sessions.POST("/logout", func(c *gin.Context) {
			if user := currentUser(c); user != nil {
				deps.Auth.Logout(c.Request.Context(), user.ID)
			}
			ClearSessionCookie(c.Writer, cfg)
			redirectTo(c, "/")
		})
	}

	todos := r.Group("/todos", RequireUser())
	{
		todos.GET("", func(c *gin.Context) {
			user := currentUser(c)
			items, err := deps.Todos.List(c.Request.Context(), user.ID)
			if err != nil {
				internalError(c, "list todos", err)
				return
			}
			c.HTML(http.StatusOK, "todos_ul", newListView(user, items))
		})

		todos.POST("", func(c *gin.Context) {
			description := strings.TrimSpace(c.PostForm("description"))
			if description == "" {
				if isHTMX(c) {
					// Show the message under the form instead of inside the list.
					c.Header("HX-Retarget", "#todo-form-error")
					c.Header("HX-Reswap", "innerHTML")
				}
				respondError(c, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "description is required")
				return
			}
			user := currentUser(c)
			ctx := c.Request.Context()
			todo, err := deps.Todos.Create(ctx, user.ID, description)
			if err != nil {
				internalError(c, "create todo", err)
				return
			}
			items, err := deps.Todos.List(ctx, user.ID)
			if err != nil {
				internalError(c, "list todos", err)
				return
			}
			c.Header("HX-Trigger", "todoFormReset")
			c.HTML(http.StatusOK, "todo_created", newChangeView(todo, items))
		})

		todos.POST("/order", func(c *gin.Context) {
			user := currentUser(c)
			var ids []int64
			for _, raw := range c.PostFormArray("order") {
				if id, err := strconv.ParseInt(raw, 10, 64); err == nil && id > 0 {
					ids = append(ids, id)
				}
			}
			items, err := deps.Todos.Reorder(c.Request.Context(), user.ID, ids)
			if err != nil {
				internalError(c, "reorder todos", err)
				return
			}
			c.HTML(http.StatusOK, "todos_inner", newListView(user, items))
		})

		todos.POST("/clear", func(c *gin.Context) {
			user := currentUser(c)
			ctx := c.Request.Context()
			if _, err := deps.Todos.DeleteDone(ctx, user.ID); err != nil {
				internalError(c, "clear done todos", err)
				return
			}
			items, err := deps.Todos.List(ctx, user.ID)
			if err != nil {
				internalError(c, "list todos", err)
				return
			}
			c.HTML(http.StatusOK, "todos_inner", newListView(user, items))
		})

		todos.PATCH("/:id", func(c *gin.Context) {
			id, ok := todoID(c)
			if !ok {
				return
			}
			user := currentUser(c)
			err := deps.Todos.SetDone(c.Request.Context(), user.ID, id, c.PostForm("done") == "on")
			if errors.Is(err, ErrTodoNotFound) {
				respondError(c, http.StatusNotFound, "NOT_FOUND", "todo not found")
				return
			}
			if err != nil {
				internalError(c, "update todo", err)
				return
			}
			renderSummary(c, deps.Todos, user)
		})

		todos.DELETE("/:id", func(c *gin.Context) {
			id, ok := todoID(c)
			if !ok {
				return
			}
			user := currentUser(c)
			err := deps.Todos.Delete(c.Request.Context(), user.ID, id)
			if errors.Is(err, ErrTodoNotFound) {
				respondError(c, http.StatusNotFound, "NOT_FOUND", "todo not found")
				return
			}
			if err != nil {
				internalError(c, "delete todo", err)
				return
			}
			renderSummary(c, deps.Todos, user)
		})
	}

	return r
}

// renderForm answers a failed form submission: the bare form fragment for
// htmx, the whole page otherwise.
func renderForm(c *gin.Context, name string, view pageView) {
	if isHTMX(c) {
		c.HTML(http.StatusUnprocessableEntity, name+"_form", view.Form)
		return
	}
	c.HTML(http.StatusUnprocessableEntity, name+"_page", view)
}

// renderSummary sends only the out-of-band list summary, after an item
// changed in place.
func renderSummary(c *gin.Context, todos TodoRepository, user *User) {
	items, err := todos.List(c.Request.Context(), user.ID)
	if err != nil {
		internalError(c, "list todos", err)
		return
	}
	c.HTML(http.StatusOK, "todos_summary_oob", newListView(user, items))
}

func todoID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid todo id")
		return 0, false
	}
	return id, true
}

// internalError logs err with the request id and answers with a generic 500.
func internalError(c *gin.Context, op string, err error) {
	log.Printf("[http] %s failed request_id=%s: %v", op, RequestIDFromContext(c.Request.Context()), err)
	respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "something went wrong")
}
