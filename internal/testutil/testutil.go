package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bitfantasy/nimo-pcf/internal/middleware"
	"github.com/bitfantasy/nimo-pcf/internal/model/entity"
	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	JWTSecret = "nimo-pcf-test-secret"
	TestUser  = "test-user-001"
)

// SetupTestDB creates an isolated in-memory sqlite database with all PCF tables migrated.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	// 每个测试使用独立的命名内存库，连接池内共享
	dsn := fmt.Sprintf("file:pcf_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&entity.Product{},
		&entity.Component{},
		&entity.ChangeLog{},
		&entity.Scenario{},
	); err != nil {
		t.Fatalf("Failed to migrate test tables: %v", err)
	}

	t.Cleanup(func() {
		sqlDB.Close()
	})
	return db
}

// SetupRouter creates a gin router in test mode
func SetupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(gin.Recovery())
	return r
}

// AuthGroup creates an API group with JWT auth middleware for testing
func AuthGroup(r *gin.Engine, path string) *gin.RouterGroup {
	return r.Group(path, middleware.JWTAuth(JWTSecret))
}

// GenerateTestToken creates a valid JWT token for testing
func GenerateTestToken(userID, name, email string, roles, permissions []string) string {
	token, _ := middleware.IssueToken(JWTSecret, "nimo-pcf", middleware.JWTClaims{
		UserID:      userID,
		Name:        name,
		Email:       email,
		Roles:       roles,
		Permissions: permissions,
	}, 24*time.Hour)
	return token
}

// DefaultTestToken returns a token for a default admin test user
func DefaultTestToken() string {
	return GenerateTestToken(TestUser, "Test Admin", "admin@test.com", []string{"pcf_admin"}, []string{"*"})
}

// ReadOnlyTestToken returns a token that may only read
func ReadOnlyTestToken() string {
	return GenerateTestToken("test-user-002", "Test Viewer", "viewer@test.com", nil, []string{middleware.PermRead})
}

// DoRequest executes an HTTP request against the test router
func DoRequest(r *gin.Engine, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	reqBody := bytes.NewBuffer(nil)
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBytes)
	}

	req, _ := http.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ParseResponse parses the JSON response body into a map
func ParseResponse(w *httptest.ResponseRecorder) map[string]interface{} {
	var result map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &result)
	return result
}

// ResponseData returns the "data" object of the response envelope
func ResponseData(w *httptest.ResponseRecorder) map[string]interface{} {
	data, _ := ParseResponse(w)["data"].(map[string]interface{})
	return data
}

// SeedProduct creates a product in the database
func SeedProduct(t *testing.T, db *gorm.DB, id, code, boundary string) *entity.Product {
	t.Helper()
	p := &entity.Product{
		ID:             id,
		Code:           code,
		Name:           "Product " + code,
		QuantityAmount: 1,
		Unit:           "piece",
		SystemBoundary: boundary,
		Status:         entity.ProductStatusInProgress,
		CreatedBy:      TestUser,
	}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("Failed to seed product: %v", err)
	}
	return p
}

// SeedComponent creates a component in the database. factor < 0 means no emission factor.
func SeedComponent(t *testing.T, db *gorm.DB, productID, id, parentID, stage string, qty, factor float64, created time.Time) *entity.Component {
	t.Helper()
	c := &entity.Component{
		ID:                 id,
		ProductID:          productID,
		ParentComponentID:  parentID,
		Name:               "Component " + id,
		Quantity:           qty,
		Unit:               "kg",
		LifecycleStage:     stage,
		NodeType:           "component",
		DataQualityRating:  3,
		VerificationStatus: "unverified",
		CreatedBy:          TestUser,
		CreatedAt:          created,
	}
	if factor >= 0 {
		f := factor
		c.EmissionFactor = &f
		c.Co2eKg = qty * factor
	}
	if err := db.Create(c).Error; err != nil {
		t.Fatalf("Failed to seed component: %v", err)
	}
	return c
}
