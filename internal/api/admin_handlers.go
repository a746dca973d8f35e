package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"go-useradmin/internal/auth"
	"go-useradmin/internal/user"
)

var passwordTooLong = user.ValidationErrors{{Field: "password", Message: "password must be at most 72 bytes"}}

type userForm struct {
	Username string `form:"username"`
	Password string `form:"password"`
	Name     string `form:"name"`
	Email    string `form:"email"`
	Age      int    `form:"age"`
	RoleIDs  []uint `form:"roleIds"`
}

func (f userForm) candidate() user.Candidate {
	return user.Candidate{
		Username: f.Username,
		Password: f.Password,
		Name:     f.Name,
		Email:    f.Email,
		Age:      f.Age,
	}
}

// bindUserForm reads the posted form. A malformed form (e.g. a non-numeric
// age) becomes a validation error instead of a 400.
func bindUserForm(c *gin.Context) (userForm, user.ValidationErrors) {
	var form userForm
	if err := c.ShouldBind(&form); err != nil {
		form.Username = c.PostForm("username")
		form.Name = c.PostForm("name")
		form.Email = c.PostForm("email")
		return form, user.ValidationErrors{{Field: "form", Message: "Invalid form data"}}
	}
	return form, nil
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// renderAdmin draws the main panel. form and errs are the state of the
// "new user" form; pass zero values for a fresh page.
func renderAdmin(c *gin.Context, d *Deps, status int, form userForm, errs user.ValidationErrors, banner string) {
	ctx := c.Request.Context()
	users, err := d.Users.ListUsers(ctx)
	if err != nil {
		renderError(c, d, http.StatusInternalServerError, "Operation failed")
		return
	}
	roles, err := d.Roles.ListRoles(ctx)
	if err != nil {
		d.Log.Error().Err(err).Msg("failed to list roles")
		renderError(c, d, http.StatusInternalServerError, "Operation failed")
		return
	}
	online, err := d.Sessions.Count(ctx)
	if err != nil {
		d.Log.Warn().Err(err).Msg("failed to count sessions")
		online = 0
	}
	c.HTML(status, "admin.html", page(c, d, "Admin panel", gin.H{
		"Users":         users,
		"AllRoles":      roles,
		"Form":          form,
		"Errors":        errs,
		"HasFormErrors": len(errs) > 0,
		"Error":         banner,
		"OnlineCount":   online,
	}))
}

func renderEdit(c *gin.Context, d *Deps, status int, id uint, form userForm, errs user.ValidationErrors, banner string) {
	roles, err := d.Roles.ListRoles(c.Request.Context())
	if err != nil {
		d.Log.Error().Err(err).Msg("failed to list roles")
		renderError(c, d, http.StatusInternalServerError, "Operation failed")
		return
	}
	c.HTML(status, "edit.html", page(c, d, "Edit user", gin.H{
		"UserID":   id,
		"AllRoles": roles,
		"Form":     form,
		"Errors":   errs,
		"Error":    banner,
	}))
}

// GET /admin
func AdminPageHandler(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		renderAdmin(c, d, http.StatusOK, userForm{}, nil, "")
	}
}

// POST /admin/create
func CreateUserHandler(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		form, errs := bindUserForm(c)
		if errs == nil {
			errs = d.Users.Validate(c.Request.Context(), form.candidate(), 0, user.OnCreate)
		}
		if len(errs) > 0 {
			form.Password = ""
			renderAdmin(c, d, http.StatusUnprocessableEntity, form, errs, "")
			return
		}

		_, err := d.Users.CreateUser(c.Request.Context(), form.candidate(), form.RoleIDs)
		switch {
		case err == nil:
			c.Redirect(http.StatusSeeOther, link(d, "admin"))
		case errors.Is(err, user.ErrDuplicateUsername):
			form.Password = ""
			errs = user.ValidationErrors{{Field: "username", Message: user.DuplicateUsernameMessage}}
			renderAdmin(c, d, http.StatusUnprocessableEntity, form, errs, "")
		case errors.Is(err, user.ErrPasswordTooLong):
			form.Password = ""
			renderAdmin(c, d, http.StatusUnprocessableEntity, form, passwordTooLong, "")
		default:
			form.Password = ""
			renderAdmin(c, d, http.StatusInternalServerError, form, nil, "Operation failed")
		}
	}
}

// GET /admin/edit/:id
func EditUserPageHandler(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			renderError(c, d, http.StatusBadRequest, "Invalid user id")
			return
		}
		u, err := d.Users.FindByID(c.Request.Context(), id)
		if errors.Is(err, user.ErrNotFound) {
			renderError(c, d, http.StatusNotFound, "User not found")
			return
		}
		if err != nil {
			renderError(c, d, http.StatusInternalServerError, "Operation failed")
			return
		}
		form := userForm{
			Username: u.Username,
			// The stored digest goes back out and is recognised as unchanged.
			Password: u.PasswordHash,
			Name:     u.Name,
			Email:    u.Email,
			Age:      u.Age,
		}
		for _, r := range u.Roles {
			form.RoleIDs = append(form.RoleIDs, r.ID)
		}
		renderEdit(c, d, http.StatusOK, id, form, nil, "")
	}
}

// POST /admin/update/:id
func UpdateUserHandler(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			renderError(c, d, http.StatusBadRequest, "Invalid user id")
			return
		}
		form, errs := bindUserForm(c)
		if errs == nil {
			errs = d.Users.Validate(c.Request.Context(), form.candidate(), id, user.OnUpdate)
		}
		if len(errs) > 0 {
			renderEdit(c, d, http.StatusUnprocessableEntity, id, form, errs, "")
			return
		}

		_, err := d.Users.UpdateUser(c.Request.Context(), id, form.candidate(), form.RoleIDs)
		switch {
		case err == nil:
			c.Redirect(http.StatusSeeOther, link(d, "admin"))
		case errors.Is(err, user.ErrNotFound):
			renderError(c, d, http.StatusNotFound, "User not found")
		case errors.Is(err, user.ErrDuplicateUsername):
			errs = user.ValidationErrors{{Field: "username", Message: user.DuplicateUsernameMessage}}
			renderEdit(c, d, http.StatusUnprocessableEntity, id, form, errs, "")
		case errors.Is(err, user.ErrPasswordTooLong):
			renderEdit(c, d, http.StatusUnprocessableEntity, id, form, passwordTooLong, "")
		default:
			renderEdit(c, d, http.StatusInternalServerError, id, form, nil, "Operation failed")
		}
	}
}

// POST /admin/delete/:id
func DeleteUserHandler(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			renderError(c, d, http.StatusBadRequest, "Invalid user id")
			return
		}
		out, err := d.Users.DeleteUser(c.Request.Context(), id, auth.CurrentUsername(c))
		if err != nil {
			renderError(c, d, http.StatusInternalServerError, "Operation failed")
			return
		}
		if out.TerminateSession {
			endSession(c, d, out.UserID)
			c.Redirect(http.StatusSeeOther, link(d, "login")+"?logout")
			return
		}
		if out.Deleted {
			// A deleted account must not keep browsing on an old cookie.
			if err := d.Sessions.Delete(c.Request.Context(), out.UserID); err != nil {
				d.Log.Warn().Err(err).Uint("user_id", out.UserID).Msg("failed to delete session")
			}
		}
		c.Redirect(http.StatusSeeOther, link(d, "admin"))
	}
}
