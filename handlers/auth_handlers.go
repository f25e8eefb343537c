package handlers

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/igen-labs/cxo-survey/auth"
	"github.com/igen-labs/cxo-survey/models"
	"gorm.io/gorm"
)

type userPayload struct {
	ID    uint        `json:"id"`
	Name  string      `json:"name"`
	Email string      `json:"email"`
	Role  models.Role `json:"role"`
	OrgID *uint       `json:"orgId"`
}

func toUserPayload(emp *models.Employee) userPayload {
	return userPayload{
		ID:    emp.ID,
		Name:  emp.Name,
		Email: emp.Email,
		Role:  emp.Role,
		OrgID: emp.OrgID,
	}
}

func (h *Handler) issueToken(emp *models.Employee) (string, error) {
	return auth.GenerateToken(emp, h.Cfg.JWTSecret, h.Cfg.JWTExpiry)
}

// issueOTP guarantees at most one live code per (email, type): prior rows
// are deleted before the new one is created and mailed.
func (h *Handler) issueOTP(email, otpType string) error {
	if err := h.DB.Where("email = ? AND type = ?", email, otpType).
		Delete(&models.OTP{}).Error; err != nil {
		return err
	}
	code := auth.GenerateOTP()
	record := models.OTP{
		Email:     email,
		Code:      code,
		Type:      otpType,
		ExpiresAt: time.Now().Add(models.OTPTTL),
	}
	if err := h.DB.Create(&record).Error; err != nil {
		return err
	}
	return h.Mailer.SendOTP(email, code, otpType)
}

// consumeOTP validates a code and deletes every live code for the pair,
// making verification single-use.
func (h *Handler) consumeOTP(email, code, otpType string) bool {
	var record models.OTP
	err := h.DB.Where("email = ? AND code = ? AND type = ? AND expires_at > ?",
		email, code, otpType, time.Now()).First(&record).Error
	if err != nil {
		return false
	}
	h.DB.Where("email = ? AND type = ?", email, otpType).Delete(&models.OTP{})
	return true
}

// SendLoginOTP starts the OTP login flow. Employees without an account yet
// are materialized lazily from their newest invite.
func (h *Handler) SendLoginOTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	email := normalizeEmail(req.Email)
	if email == "" {
		writeError(w, http.StatusBadRequest, "Email is required")
		return
	}

	var emp models.Employee
	err := h.DB.Where("email = ?", email).First(&emp).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		var invite models.InviteLog
		if err := h.DB.Where("email = ?", email).
			Order("created_at DESC").First(&invite).Error; err != nil {
			writeError(w, http.StatusBadRequest,
				"No account found with this email. Please contact your administrator for an invitation.")
			return
		}
		emp = models.Employee{
			Email:        invite.Email,
			Role:         invite.Role,
			OrgID:        invite.OrgID,
			DepartmentID: invite.DepartmentID,
			InviteStatus: models.InvitePending,
			InviteToken:  invite.Token,
		}
		if err := h.DB.Create(&emp).Error; err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	} else if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if err := h.issueOTP(emp.Email, models.OTPLogin); err != nil {
		log.Printf("send login OTP to %s: %v", emp.Email, err)
		writeError(w, http.StatusInternalServerError, "Failed to send OTP")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "OTP sent to your email",
		"email":   emp.Email,
	})
}

// VerifyLoginOTP consumes the code and logs the employee in. The first
// successful verification doubles as invite acceptance.
func (h *Handler) VerifyLoginOTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		OTP   string `json:"otp"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	email := normalizeEmail(req.Email)

	// Check the account before consuming the code so a verification
	// attempt against a deleted account does not burn a live OTP.
	var emp models.Employee
	if err := h.DB.Where("email = ?", email).First(&emp).Error; err != nil {
		writeError(w, http.StatusBadRequest, "User not found")
		return
	}

	if !h.consumeOTP(email, req.OTP, models.OTPLogin) {
		writeError(w, http.StatusBadRequest, "Invalid or expired OTP")
		return
	}

	if emp.InviteStatus == models.InvitePending {
		if err := h.acceptInvite(&emp); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	now := time.Now()
	emp.LastLogin = &now
	if err := h.DB.Save(&emp).Error; err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	token, err := h.issueToken(&emp)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token": token,
		"user":  toUserPayload(&emp),
	})
}

// acceptInvite flips the employee and their invite log to accepted,
// backfills department survey assignments and, for a CEO, activates the
// organization. Runs as one transaction.
func (h *Handler) acceptInvite(emp *models.Employee) error {
	return h.DB.Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		emp.InviteStatus = models.InviteAccepted
		emp.AcceptedAt = &now
		if err := tx.Save(emp).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.InviteLog{}).
			Where("email = ? AND status IN ?", emp.Email,
				[]string{models.InviteLogSent, models.InviteLogClicked}).
			Updates(map[string]interface{}{
				"status":      models.InviteLogAccepted,
				"accepted_at": now,
			}).Error; err != nil {
			return err
		}

		if err := backfillDepartmentSurveys(tx, emp); err != nil {
			return err
		}

		if emp.Role == models.RoleCEO && emp.OrgID != nil {
			if err := tx.Model(&models.Organization{}).
				Where("id = ?", *emp.OrgID).
				Updates(map[string]interface{}{
					"ceo_id": emp.ID,
					"status": models.OrgStatusActive,
				}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// backfillDepartmentSurveys is the catch-up enrollment: every active
// survey already assigned to the employee's department gets an assignment
// for this employee too, skipping pairs that already exist.
func backfillDepartmentSurveys(tx *gorm.DB, emp *models.Employee) error {
	if emp.DepartmentID == nil || emp.Role != models.RoleUser || emp.OrgID == nil {
		return nil
	}

	var surveyIDs []uint
	if err := tx.Model(&models.SurveyAssignment{}).
		Where("department_id = ? AND org_id = ?", *emp.DepartmentID, *emp.OrgID).
		Distinct("survey_id").Pluck("survey_id", &surveyIDs).Error; err != nil {
		return err
	}
	if len(surveyIDs) == 0 {
		return nil
	}

	var surveys []models.Survey
	if err := tx.Where("id IN ? AND status = ?", surveyIDs, models.SurveyActive).
		Find(&surveys).Error; err != nil {
		return err
	}

	for _, survey := range surveys {
		var count int64
		if err := tx.Model(&models.SurveyAssignment{}).
			Where("survey_id = ? AND employee_id = ?", survey.ID, emp.ID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		assignment := models.SurveyAssignment{
			SurveyID:     survey.ID,
			OrgID:        *emp.OrgID,
			DepartmentID: emp.DepartmentID,
			EmployeeID:   emp.ID,
			DueDate:      survey.DueDate,
			AssignedAt:   time.Now(),
		}
		if err := tx.Create(&assignment).Error; err != nil {
			return err
		}
	}
	return nil
}

// ResendOTP reissues a code for any purpose, invalidating prior ones.
func (h *Handler) ResendOTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		Type  string `json:"type"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	email := normalizeEmail(req.Email)
	if email == "" || req.Type == "" {
		writeError(w, http.StatusBadRequest, "Email and type are required")
		return
	}
	switch req.Type {
	case models.OTPLogin, models.OTPSignup, models.OTPReset:
	default:
		writeError(w, http.StatusBadRequest, "Unknown OTP type")
		return
	}

	if err := h.issueOTP(email, req.Type); err != nil {
		log.Printf("resend %s OTP to %s: %v", req.Type, email, err)
		writeError(w, http.StatusInternalServerError, "Failed to send OTP")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "OTP resent successfully"})
}

// liveInvite loads an invitation that can still be redeemed.
func (h *Handler) liveInvite(token string) (*models.InviteLog, error) {
	var invite models.InviteLog
	err := h.DB.Where("token = ? AND status IN ? AND expires_at > ?",
		token, []string{models.InviteLogSent, models.InviteLogClicked}, time.Now()).
		First(&invite).Error
	if err != nil {
		return nil, err
	}
	return &invite, nil
}

// VerifyInvite validates an invite token for the signup page and records
// the first click. Idempotent for already-clicked links.
func (h *Handler) VerifyInvite(w http.ResponseWriter, r *http.Request) {
	token := mux.Vars(r)["token"]

	invite, err := h.liveInvite(token)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"valid": false,
			"error": "Invalid or expired invitation link",
		})
		return
	}

	if invite.Status == models.InviteLogSent {
		now := time.Now()
		invite.Status = models.InviteLogClicked
		invite.ClickedAt = &now
		if err := h.DB.Save(invite).Error; err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	orgName := ""
	if invite.OrgID != nil {
		var org models.Organization
		if err := h.DB.First(&org, *invite.OrgID).Error; err == nil {
			orgName = org.Name
		}
	}
	var departmentName *string
	if invite.DepartmentID != nil {
		var dept models.Department
		if err := h.DB.First(&dept, *invite.DepartmentID).Error; err == nil {
			departmentName = &dept.Name
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"valid":          true,
		"email":          invite.Email,
		"role":           invite.Role,
		"orgName":        orgName,
		"departmentName": departmentName,
	})
}

// SendSignupOTP issues a signup code against a live invite token.
func (h *Handler) SendSignupOTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	invite, err := h.liveInvite(req.Token)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid or expired invitation")
		return
	}

	var existing int64
	h.DB.Model(&models.Employee{}).
		Where("email = ? AND invite_status = ?", invite.Email, models.InviteAccepted).
		Count(&existing)
	if existing > 0 {
		writeError(w, http.StatusBadRequest, "Account already exists. Please login.")
		return
	}

	if err := h.issueOTP(invite.Email, models.OTPSignup); err != nil {
		log.Printf("send signup OTP to %s: %v", invite.Email, err)
		writeError(w, http.StatusInternalServerError, "Failed to send OTP")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "OTP sent to your email",
		"email":   invite.Email,
	})
}

// VerifySignupOTP completes invite-driven signup: sets name and password
// and performs the same acceptance side effects as the OTP login path.
func (h *Handler) VerifySignupOTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token    string `json:"token"`
		OTP      string `json:"otp"`
		Name     string `json:"name"`
		Password string `json:"password"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	invite, err := h.liveInvite(req.Token)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid or expired invitation")
		return
	}

	if !h.consumeOTP(invite.Email, req.OTP, models.OTPSignup) {
		writeError(w, http.StatusBadRequest, "Invalid or expired OTP")
		return
	}

	var emp models.Employee
	err = h.DB.Where("email = ?", invite.Email).First(&emp).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		emp = models.Employee{
			Email:        invite.Email,
			Role:         invite.Role,
			OrgID:        invite.OrgID,
			DepartmentID: invite.DepartmentID,
			InviteStatus: models.InvitePending,
		}
		if err := h.DB.Create(&emp).Error; err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	} else if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	emp.Name = req.Name
	if req.Password != "" {
		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		emp.PasswordHash = hash
	}
	if err := h.DB.Save(&emp).Error; err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if err := h.acceptInvite(&emp); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	token, err := h.issueToken(&emp)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"token": token,
		"user":  toUserPayload(&emp),
	})
}

// GoogleLogin starts the OAuth redirect flow, parking the state value in a
// server-side session for the callback hop.
func (h *Handler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	if h.Cfg.GoogleOAuth.ClientID == "" || h.Cfg.GoogleOAuth.ClientSecret == "" {
		writeError(w, http.StatusInternalServerError, "OAuth configuration error")
		return
	}

	session, err := auth.OAuthSession(r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create session")
		return
	}
	state := auth.GenerateState()
	session.Values["state"] = state
	if err := session.Save(r, w); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save session")
		return
	}

	http.Redirect(w, r, h.Cfg.GoogleOAuth.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

// GoogleCallback finishes the OAuth flow. Only invited accounts may log
// in; unknown emails are bounced back to the frontend.
func (h *Handler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	session, err := auth.OAuthSession(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid OAuth state")
		return
	}
	saved, _ := session.Values["state"].(string)
	if saved == "" || saved != r.FormValue("state") {
		writeError(w, http.StatusBadRequest, "Invalid OAuth state")
		return
	}

	token, err := h.Cfg.GoogleOAuth.Exchange(r.Context(), r.FormValue("code"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to exchange token: "+err.Error())
		return
	}

	info, err := auth.GetGoogleUserInfo(token.AccessToken)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get user info: "+err.Error())
		return
	}

	var emp models.Employee
	if err := h.DB.Where("email = ?", normalizeEmail(info.Email)).First(&emp).Error; err != nil {
		// OAuth never creates accounts; an invitation must exist first.
		http.Redirect(w, r, h.Cfg.FrontendURL+"/login?error=no_account", http.StatusSeeOther)
		return
	}

	if emp.InviteStatus == models.InvitePending {
		if err := h.acceptInvite(&emp); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	now := time.Now()
	emp.GoogleID = &info.ID
	emp.LastLogin = &now
	if emp.Name == "" {
		emp.Name = info.Name
	}
	if err := h.DB.Save(&emp).Error; err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	authToken, err := h.issueToken(&emp)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	http.Redirect(w, r, h.Cfg.FrontendURL+"/auth/callback?token="+authToken, http.StatusSeeOther)
}

// Me returns the authenticated employee.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	emp := auth.EmployeeFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]interface{}{"user": toUserPayload(emp)})
}
