// Package mailer sends the transactional HTML mail the platform produces:
// one-time codes, invitation links and survey-assignment notifications.
package mailer

import (
	"fmt"
	"net/smtp"
	"time"

	"github.com/igen-labs/cxo-survey/config"
)

// Mailer is an SMTP transport constructed from config and injected into
// the handler layer.
type Mailer struct {
	cfg         config.SMTPConfig
	frontendURL string
}

func New(cfg config.SMTPConfig, frontendURL string) *Mailer {
	return &Mailer{cfg: cfg, frontendURL: frontendURL}
}

// SignupLink is the invite link embedded in invitation mail; the admin UI
// also shows it when delivery fails so it can be shared manually.
func (m *Mailer) SignupLink(token string) string {
	return fmt.Sprintf("%s/signup?token=%s", m.frontendURL, token)
}

// Send delivers a single HTML message. Callers on best-effort paths log
// and swallow the returned error.
func (m *Mailer) Send(to, subject, body string) error {
	if m.cfg.Host == "" || m.cfg.User == "" || m.cfg.Password == "" {
		return fmt.Errorf("missing SMTP configuration")
	}

	msg := []byte(fmt.Sprintf(
		"From: \"CXO Survey\" <%s>\r\n"+
			"To: %s\r\n"+
			"Subject: %s\r\n"+
			"MIME-Version: 1.0\r\n"+
			"Content-Type: text/html; charset=\"utf-8\"\r\n"+
			"\r\n%s\r\n",
		m.cfg.From, to, subject, body,
	))

	addr := m.cfg.Host + ":" + m.cfg.Port
	auth := smtp.PlainAuth("", m.cfg.User, m.cfg.Password, m.cfg.Host)
	return smtp.SendMail(addr, auth, m.cfg.From, []string{to}, msg)
}

// SendOTP mails a one-time code. The subject and intro vary by purpose
// (login, signup, reset).
func (m *Mailer) SendOTP(to, code, otpType string) error {
	subjects := map[string]string{
		"login":  "Your Login OTP - CXO Survey",
		"signup": "Verify Your Email - CXO Survey",
		"reset":  "Password Reset OTP - CXO Survey",
	}
	intros := map[string]string{
		"login":  "Use this OTP to login to your account",
		"signup": "Use this OTP to verify your email and complete registration",
		"reset":  "Use this OTP to reset your password",
	}

	body := fmt.Sprintf(`
		<div style="font-family:Arial,sans-serif;max-width:500px;margin:0 auto;padding:20px;">
		  <h2 style="color:#4F46E5;text-align:center;">CXO Survey</h2>
		  <div style="background:#f3f4f6;padding:30px;border-radius:10px;text-align:center;">
		    <p style="color:#374151;">%s</p>
		    <div style="background:#4F46E5;color:white;font-size:32px;letter-spacing:8px;padding:15px 30px;border-radius:8px;display:inline-block;font-weight:bold;">%s</div>
		    <p style="color:#6b7280;margin-top:20px;font-size:14px;">This OTP expires in 10 minutes</p>
		  </div>
		  <p style="color:#9ca3af;font-size:12px;text-align:center;margin-top:20px;">If you didn't request this, please ignore this email.</p>
		</div>`, intros[otpType], code)

	return m.Send(to, subjects[otpType], body)
}

// SendCEOInvite mails the CEO invitation for a newly created organization.
func (m *Mailer) SendCEOInvite(to, token, orgName string) error {
	link := m.SignupLink(token)
	body := fmt.Sprintf(`
		<div style="font-family:Arial,sans-serif;max-width:600px;margin:0 auto;padding:20px;">
		  <h1 style="color:#4F46E5;text-align:center;">CXO Survey</h1>
		  <div style="background:#667eea;padding:40px;border-radius:15px;text-align:center;color:white;">
		    <h2>Congratulations!</h2>
		    <p style="font-size:18px;">You've been invited as <strong>CEO</strong> of</p>
		    <h3 style="font-size:28px;">%s</h3>
		  </div>
		  <div style="background:#f9fafb;padding:30px;border-radius:10px;margin-top:20px;">
		    <p style="color:#374151;">As CEO, you will be able to manage departments, invite employees, assign surveys and view analytics.</p>
		    <div style="text-align:center;margin-top:30px;">
		      <a href="%s" style="background:#4F46E5;color:white;padding:15px 40px;text-decoration:none;border-radius:8px;display:inline-block;font-weight:bold;">Accept Invitation &amp; Sign Up</a>
		    </div>
		    <p style="color:#6b7280;font-size:14px;text-align:center;margin-top:20px;">Or copy this link:<br/><span style="color:#4F46E5;word-break:break-all;">%s</span></p>
		  </div>
		  <p style="color:#9ca3af;font-size:12px;text-align:center;margin-top:20px;">This invitation expires in 7 days. If you didn't expect this, please ignore this email.</p>
		</div>`, orgName, link, link)

	return m.Send(to, fmt.Sprintf("You're invited as CEO of %s - CXO Survey", orgName), body)
}

// SendUserInvite mails an employee invitation, optionally naming the
// department the account is locked to.
func (m *Mailer) SendUserInvite(to, token, orgName, departmentName string) error {
	link := m.SignupLink(token)
	deptLine := ""
	if departmentName != "" {
		deptLine = fmt.Sprintf(`<p style="font-size:16px;">Department: <strong>%s</strong></p>`, departmentName)
	}
	body := fmt.Sprintf(`
		<div style="font-family:Arial,sans-serif;max-width:600px;margin:0 auto;padding:20px;">
		  <h1 style="color:#4F46E5;text-align:center;">CXO Survey</h1>
		  <div style="background:#11998e;padding:40px;border-radius:15px;text-align:center;color:white;">
		    <h2>Welcome!</h2>
		    <p style="font-size:18px;">You've been invited to join</p>
		    <h3 style="font-size:28px;">%s</h3>
		    %s
		  </div>
		  <div style="background:#f9fafb;padding:30px;border-radius:10px;margin-top:20px;">
		    <p style="color:#374151;">As a team member you can participate in surveys, save drafts and track your progress.</p>
		    <div style="text-align:center;margin-top:30px;">
		      <a href="%s" style="background:#10b981;color:white;padding:15px 40px;text-decoration:none;border-radius:8px;display:inline-block;font-weight:bold;">Accept Invitation &amp; Sign Up</a>
		    </div>
		    <p style="color:#6b7280;font-size:14px;text-align:center;margin-top:20px;">Or copy this link:<br/><span style="color:#10b981;word-break:break-all;">%s</span></p>
		  </div>
		  <p style="color:#9ca3af;font-size:12px;text-align:center;margin-top:20px;">This invitation expires in 7 days. If you didn't expect this, please ignore this email.</p>
		</div>`, orgName, deptLine, link, link)

	return m.Send(to, fmt.Sprintf("You're invited to join %s - CXO Survey", orgName), body)
}

// SendSurveyNotification tells an employee a survey was assigned to them.
func (m *Mailer) SendSurveyNotification(to, surveyTitle string, dueDate *time.Time) error {
	due := "No deadline"
	if dueDate != nil {
		due = dueDate.Format("Jan 2, 2006")
	}
	body := fmt.Sprintf(`
		<div style="font-family:Arial,sans-serif;max-width:500px;margin:0 auto;padding:20px;">
		  <h2 style="color:#4F46E5;text-align:center;">CXO Survey</h2>
		  <div style="background:#fef3c7;padding:30px;border-radius:10px;">
		    <h3 style="color:#92400e;">New Survey Assigned</h3>
		    <p style="color:#374151;font-size:18px;"><strong>%s</strong></p>
		    <p style="color:#6b7280;">Due Date: <strong>%s</strong></p>
		    <div style="text-align:center;margin-top:25px;">
		      <a href="%s/dashboard" style="background:#f59e0b;color:white;padding:12px 30px;text-decoration:none;border-radius:6px;display:inline-block;">Go to Dashboard</a>
		    </div>
		  </div>
		</div>`, surveyTitle, due, m.frontendURL)

	return m.Send(to, "New Survey Assigned: "+surveyTitle, body)
}
