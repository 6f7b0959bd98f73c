package handler

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/bitfantasy/nimo-eam/internal/eam/entity"
	"github.com/bitfantasy/nimo-eam/internal/eam/repository"
	"github.com/bitfantasy/nimo-eam/internal/eam/service"
	"github.com/bitfantasy/nimo-eam/internal/eam/testutil"
	"github.com/bitfantasy/nimo-eam/internal/shared/notify"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupRepairHandlerTest(t *testing.T) (*gorm.DB, *gin.Engine) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	stockSvc := service.NewStockService(repos.Stock)
	repairSvc := service.NewRepairService(repos.Repair, repos.Device, repos.User, stockSvc, notify.Nop{}, zap.NewNop())
	h := NewRepairHandler(repairSvc)

	r := testutil.SetupRouter()
	repairs := testutil.AuthGroup(r, "/api/v1/repairs")
	repairs.GET("", h.List)
	repairs.GET("/:id", h.Get)
	repairs.POST("", h.Create)
	repairs.PUT("/:id/request", h.SaveRequest)
	repairs.PUT("/:id/inspection", h.SaveInspection)
	repairs.PUT("/:id/acceptance", h.SaveAcceptance)
	repairs.POST("/:id/review/:phase", h.Review)
	repairs.POST("/:id/limited-use", h.RequestLimitedUse)
	repairs.POST("/:id/limited-use/review", h.ReviewLimitedUse)
	repairs.DELETE("/:id", h.Delete)
	return db, r
}

func TestRepairCreateAndGetEndpoint(t *testing.T) {
	db, r := setupRepairHandlerTest(t)
	testutil.SeedUser(t, db, "u1", "报修人", entity.RoleUser, true)
	testutil.SeedDevice(t, db, "dev-1", "数控车床", entity.DeviceStatusInUse)
	token := testutil.GenerateTestToken("u1", "报修人", entity.RoleUser)

	w := testutil.DoRequest(r, "POST", "/api/v1/repairs", gin.H{
		"device_id":      "dev-1",
		"location_issue": "进给轴卡滞",
	}, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	data := resp["data"].(map[string]interface{})
	orderID := data["id"].(string)
	if data["status_request"] != entity.RequestStatusWaitingTech {
		t.Errorf("status_request = %v, want WAITING_TECH", data["status_request"])
	}

	w = testutil.DoRequest(r, "GET", "/api/v1/repairs/"+orderID, nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
}

func TestRepairCreateValidation(t *testing.T) {
	db, r := setupRepairHandlerTest(t)
	testutil.SeedUser(t, db, "u1", "报修人", entity.RoleUser, true)
	token := testutil.GenerateTestToken("u1", "报修人", entity.RoleUser)

	// 缺少必填字段
	w := testutil.DoRequest(r, "POST", "/api/v1/repairs", gin.H{"device_id": "dev-1"}, token)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing location_issue: status = %d, want 400", w.Code)
	}

	// 设备不存在
	w = testutil.DoRequest(r, "POST", "/api/v1/repairs", gin.H{
		"device_id":      "no-such",
		"location_issue": "异响",
	}, token)
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown device: status = %d, want 404", w.Code)
	}
}

func TestRepairEndpointsRequireAuth(t *testing.T) {
	_, r := setupRepairHandlerTest(t)

	w := testutil.DoRequest(r, "GET", "/api/v1/repairs", nil, "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
	resp := testutil.ParseResponse(w)
	if code, _ := resp["code"].(float64); int(code) != 40100 {
		t.Errorf("code = %v, want 40100", resp["code"])
	}
}

func TestRepairReviewEndpoint(t *testing.T) {
	db, r := setupRepairHandlerTest(t)
	testutil.SeedUser(t, db, "u1", "报修人", entity.RoleUser, true)
	testutil.SeedUser(t, db, "tech", "技术员", entity.RoleTechnician, true)
	testutil.SeedUser(t, db, "mgr", "经理", entity.RoleManager, true)
	testutil.SeedDevice(t, db, "dev-1", "数控车床", entity.DeviceStatusInUse)
	creatorToken := testutil.GenerateTestToken("u1", "报修人", entity.RoleUser)
	techToken := testutil.GenerateTestToken("tech", "技术员", entity.RoleTechnician)
	mgrToken := testutil.GenerateTestToken("mgr", "经理", entity.RoleManager)

	w := testutil.DoRequest(r, "POST", "/api/v1/repairs", gin.H{
		"device_id":      "dev-1",
		"location_issue": "进给轴卡滞",
	}, creatorToken)
	resp := testutil.ParseResponse(w)
	orderID := resp["data"].(map[string]interface{})["id"].(string)
	reviewPath := fmt.Sprintf("/api/v1/repairs/%s/review/request", orderID)

	// 越级审批返回 409
	w = testutil.DoRequest(r, "POST", reviewPath, gin.H{"action": "approve"}, mgrToken)
	if w.Code != http.StatusConflict {
		t.Errorf("out-of-order approve: status = %d, want 409, body = %s", w.Code, w.Body.String())
	}

	w = testutil.DoRequest(r, "POST", reviewPath, gin.H{"action": "approve"}, techToken)
	if w.Code != http.StatusOK {
		t.Fatalf("tech approve: status = %d, body = %s", w.Code, w.Body.String())
	}
	resp = testutil.ParseResponse(w)
	data := resp["data"].(map[string]interface{})
	if data["status_request"] != entity.RequestStatusWaitingManager {
		t.Errorf("status_request = %v, want WAITING_MANAGER", data["status_request"])
	}

	// 未知阶段返回 400
	w = testutil.DoRequest(r, "POST", fmt.Sprintf("/api/v1/repairs/%s/review/bogus", orderID),
		gin.H{"action": "approve"}, techToken)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bogus phase: status = %d, want 400", w.Code)
	}

	// 驳回必须给原因
	w = testutil.DoRequest(r, "POST", reviewPath, gin.H{"action": "reject"}, mgrToken)
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("reject without reason: status = %d, want 422", w.Code)
	}
}

func TestRepairInspectionShortageEndpoint(t *testing.T) {
	db, r := setupRepairHandlerTest(t)
	testutil.SeedUser(t, db, "u1", "报修人", entity.RoleUser, true)
	testutil.SeedUser(t, db, "tech", "技术员", entity.RoleTechnician, true)
	testutil.SeedUser(t, db, "lead", "组长", entity.RoleTeamLead, true)
	testutil.SeedUser(t, db, "mgr", "经理", entity.RoleManager, true)
	testutil.SeedUser(t, db, "dir", "主管", entity.RoleDirector, true)
	testutil.SeedDevice(t, db, "dev-1", "数控车床", entity.DeviceStatusInUse)
	testutil.SeedStockItem(t, db, "item-a", "轴承", "1")
	creatorToken := testutil.GenerateTestToken("u1", "报修人", entity.RoleUser)

	w := testutil.DoRequest(r, "POST", "/api/v1/repairs", gin.H{
		"device_id":      "dev-1",
		"location_issue": "进给轴卡滞",
	}, creatorToken)
	orderID := testutil.ParseResponse(w)["data"].(map[string]interface{})["id"].(string)

	for _, u := range []struct{ id, role string }{
		{"tech", entity.RoleTechnician}, {"mgr", entity.RoleManager}, {"dir", entity.RoleDirector},
	} {
		w = testutil.DoRequest(r, "POST", fmt.Sprintf("/api/v1/repairs/%s/review/request", orderID),
			gin.H{"action": "approve"}, testutil.GenerateTestToken(u.id, u.id, u.role))
		if w.Code != http.StatusOK {
			t.Fatalf("request approve by %s: status = %d, body = %s", u.id, w.Code, w.Body.String())
		}
	}

	w = testutil.DoRequest(r, "PUT", fmt.Sprintf("/api/v1/repairs/%s/inspection", orderID), gin.H{
		"materials": []gin.H{{"item_id": "item-a", "item_name": "轴承", "quantity": "5"}},
	}, creatorToken)
	if w.Code != http.StatusOK {
		t.Fatalf("save inspection: status = %d, body = %s", w.Code, w.Body.String())
	}

	for _, u := range []struct{ id, role string }{
		{"lead", entity.RoleTeamLead}, {"mgr", entity.RoleManager},
	} {
		w = testutil.DoRequest(r, "POST", fmt.Sprintf("/api/v1/repairs/%s/review/inspection", orderID),
			gin.H{"action": "approve"}, testutil.GenerateTestToken(u.id, u.id, u.role))
		if w.Code != http.StatusOK {
			t.Fatalf("inspection approve by %s: status = %d, body = %s", u.id, w.Code, w.Body.String())
		}
	}

	// 终审库存不足：422，响应携带缺口明细
	w = testutil.DoRequest(r, "POST", fmt.Sprintf("/api/v1/repairs/%s/review/inspection", orderID),
		gin.H{"action": "approve"}, testutil.GenerateTestToken("dir", "主管", entity.RoleDirector))
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("final approve with shortage: status = %d, body = %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	if code, _ := resp["code"].(float64); int(code) != 42200 {
		t.Errorf("code = %v, want 42200", resp["code"])
	}
	data, _ := resp["data"].(map[string]interface{})
	if data == nil || data["shortfalls"] == nil {
		t.Errorf("response should list shortfalls, body = %s", w.Body.String())
	}
}

func TestRepairDeleteEndpoint(t *testing.T) {
	db, r := setupRepairHandlerTest(t)
	testutil.SeedUser(t, db, "u1", "报修人", entity.RoleUser, true)
	testutil.SeedDevice(t, db, "dev-1", "数控车床", entity.DeviceStatusInUse)
	token := testutil.GenerateTestToken("u1", "报修人", entity.RoleUser)

	w := testutil.DoRequest(r, "POST", "/api/v1/repairs", gin.H{
		"device_id":      "dev-1",
		"location_issue": "异响",
	}, token)
	orderID := testutil.ParseResponse(w)["data"].(map[string]interface{})["id"].(string)

	w = testutil.DoRequest(r, "DELETE", "/api/v1/repairs/"+orderID, nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("delete status = %d, body = %s", w.Code, w.Body.String())
	}

	w = testutil.DoRequest(r, "GET", "/api/v1/repairs/"+orderID, nil, token)
	if w.Code != http.StatusNotFound {
		t.Errorf("get after delete: status = %d, want 404", w.Code)
	}
}
