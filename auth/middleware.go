package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/igen-labs/cxo-survey/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type contextKey struct{}

var employeeKey contextKey

// EmployeeFromContext returns the authenticated employee attached by
// Middleware, or nil on unauthenticated requests.
func EmployeeFromContext(ctx context.Context) *models.Employee {
	emp, _ := ctx.Value(employeeKey).(*models.Employee)
	return emp
}

// WithEmployee attaches an employee to the context. Used by Middleware and
// by handler tests.
func WithEmployee(ctx context.Context, emp *models.Employee) context.Context {
	return context.WithValue(ctx, employeeKey, emp)
}

// Middleware resolves the bearer token to an Employee and attaches it to
// the request context. Missing, invalid or expired tokens get 401.
func Middleware(db *gorm.DB, secret string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				http.Error(w, "Access denied", http.StatusUnauthorized)
				return
			}
			tokenStr := strings.TrimPrefix(header, "Bearer ")
			if tokenStr == header {
				http.Error(w, "Invalid token", http.StatusUnauthorized)
				return
			}

			claims, err := ParseToken(tokenStr, secret)
			if err != nil {
				http.Error(w, "Invalid token", http.StatusUnauthorized)
				return
			}

			var emp models.Employee
			if err := db.First(&emp, claims.EmployeeID).Error; err != nil {
				http.Error(w, "User not found", http.StatusUnauthorized)
				return
			}
			if !emp.IsActive {
				http.Error(w, "Account is deactivated", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithEmployee(r.Context(), &emp)))
		})
	}
}

// RequireRole gates a subrouter to the listed roles. Admin is not implied;
// list it explicitly where admin passage is wanted.
func RequireRole(roles ...models.Role) mux.MiddlewareFunc {
	allowed := make(map[models.Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			emp := EmployeeFromContext(r.Context())
			if emp == nil {
				http.Error(w, "Access denied", http.StatusUnauthorized)
				return
			}
			if _, ok := allowed[emp.Role]; !ok {
				http.Error(w, "Insufficient role", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
