// This is a **mock authentication service**, designed to provide JWT tokens
// for the payroll service, simulating user authentication.
//
//	GET /token?role=manager
//	GET /token?role=employee&employee_id=7
package main

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gartstein/siteledger/internal/payroll/auth"
	"github.com/gartstein/siteledger/internal/payroll/models"
	"github.com/gartstein/siteledger/internal/pkg/utils"
)

const (
	defaultPort   = "8081"       // Default port for the authentication service
	defaultSecret = "jwt_secret" // Secret for signing JWT
	tokenTTL      = 24 * time.Hour
)

// TokenResponse represents the response structure
type TokenResponse struct {
	Token     string    `json:"token"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
}

// tokenHandler generates a JWT and returns it in JSON response
func tokenHandler(w http.ResponseWriter, r *http.Request) {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = defaultSecret
	}

	role := models.Role(r.URL.Query().Get("role"))
	if role == "" {
		role = models.RoleManager
	}
	switch role {
	case models.RoleAdmin, models.RoleManager, models.RoleEmployee:
	default:
		http.Error(w, "role must be admin, manager or employee", http.StatusBadRequest)
		return
	}

	var employeeID *int64
	if raw := r.URL.Query().Get("employee_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			http.Error(w, "invalid employee_id", http.StatusBadRequest)
			return
		}
		employeeID = utils.Ptr(id)
	}
	if role == models.RoleEmployee && employeeID == nil {
		http.Error(w, "employee tokens need an employee_id", http.StatusBadRequest)
		return
	}

	// Simulate a user ID for the token
	userID := "12345"

	token, err := auth.GenerateToken(userID, role, employeeID, secret, tokenTTL)
	if err != nil {
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	resp := TokenResponse{Token: token, Role: string(role), ExpiresAt: time.Now().Add(tokenTTL).UTC()}
	w.Header().Set("Content-Type", "application/json")
	err = json.NewEncoder(w).Encode(resp)
	if err != nil {
		http.Error(w, "Failed to encode token", http.StatusInternalServerError)
	}
}

func main() {
	port := os.Getenv("AUTH_PORT")
	if port == "" {
		port = defaultPort
	}
	http.HandleFunc("/token", tokenHandler)

	log.Printf("Authentication service running on port %s", port)
	server := &http.Server{Addr: ":" + port, ReadHeaderTimeout: 10 * time.Second}
	log.Fatal(server.ListenAndServe())
}
