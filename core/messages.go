package core

import (
	ut "github.com/go-playground/universal-translator"
)

// Response codes. Clients switch on these; the Arabic texts below may change freely.
const (
	// success
	CodeOTPSent         = "OTP_SENT"
	CodeSignedIn        = "SIGNED_IN"
	CodeSignedOut       = "SIGNED_OUT"
	CodePasswordUpdated = "PASSWORD_UPDATED"

	// otp
	CodeMissingEmail = "MISSING_EMAIL"
	CodeInvalidEmail = "INVALID_EMAIL"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeRateLimited  = "RATE_LIMITED"
	CodeRequestError = "REQUEST_ERROR"
	CodeNotFound     = "NOT_FOUND"
	CodeExpired      = "EXPIRED"
	CodeInvalidCode  = "INVALID_CODE"
	CodeVerifyError  = "VERIFY_ERROR"

	// accounts & sessions
	CodeMissingFields      = "MISSING_FIELDS"
	CodeStudentNotFound    = "STUDENT_NOT_FOUND"
	CodeUpdateError        = "UPDATE_ERROR"
	CodeForbidden          = "FORBIDDEN"
	CodeInvalidPassword    = "INVALID_PASSWORD"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeAccountDisabled    = "ACCOUNT_DISABLED"
	CodeSignInError        = "SIGN_IN_ERROR"
	CodeSignOutError       = "SIGN_OUT_ERROR"

	// generic
	CodeValidationError  = "VALIDATION_ERROR"
	CodeNotAuthenticated = "NOT_AUTHENTICATED"
	CodeTooManyRequests  = "TOO_MANY_REQUESTS"
	CodeRouteNotFound    = "ROUTE_NOT_FOUND"
	CodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	CodeInternalError    = "INTERNAL_ERROR"
)

var messages = map[string]string{
	CodeOTPSent:         "تم إرسال رمز التحقق إلى بريدك الإلكتروني",
	CodeSignedIn:        "تم تسجيل الدخول بنجاح",
	CodeSignedOut:       "تم تسجيل الخروج بنجاح",
	CodePasswordUpdated: "تم تحديث كلمة المرور بنجاح",

	CodeMissingEmail: "البريد الإلكتروني مطلوب",
	CodeInvalidEmail: "البريد الإلكتروني غير صالح",
	CodeUnauthorized: "هذا البريد الإلكتروني غير مصرح له بالدخول",
	CodeRateLimited:  "يرجى الانتظار قبل طلب رمز جديد",
	CodeRequestError: "حدث خطأ أثناء إرسال رمز التحقق",
	CodeNotFound:     "لا يوجد رمز تحقق صالح، يرجى طلب رمز جديد",
	CodeExpired:      "انتهت صلاحية رمز التحقق",
	CodeInvalidCode:  "رمز التحقق غير صحيح",
	CodeVerifyError:  "حدث خطأ أثناء التحقق من الرمز",

	CodeMissingFields:      "جميع الحقول مطلوبة",
	CodeStudentNotFound:    "الطالب غير موجود",
	CodeUpdateError:        "حدث خطأ أثناء تحديث كلمة المرور",
	CodeForbidden:          "ليس لديك صلاحية لتنفيذ هذا الإجراء",
	CodeInvalidPassword:    "كلمة المرور لا تستوفي الشروط المطلوبة",
	CodeInvalidCredentials: "البريد الإلكتروني أو كلمة المرور غير صحيحة",
	CodeAccountDisabled:    "تم تعطيل هذا الحساب",
	CodeSignInError:        "حدث خطأ أثناء تسجيل الدخول",
	CodeSignOutError:       "حدث خطأ أثناء تسجيل الخروج",

	CodeValidationError:  "البيانات المدخلة غير صالحة",
	CodeNotAuthenticated: "يجب تسجيل الدخول أولاً",
	CodeTooManyRequests:  "عدد كبير من الطلبات، يرجى المحاولة لاحقاً",
	CodeRouteNotFound:    "الصفحة المطلوبة غير موجودة",
	CodeMethodNotAllowed: "الطريقة غير مسموح بها",
	CodeInternalError:    "حدث خطأ غير متوقع، يرجى المحاولة لاحقاً",
}

// RegisterMessages adds the message catalog to translator, keyed by response code.
func RegisterMessages(translator ut.Translator) error {
	for code, text := range messages {
		if err := translator.Add(code, text, true); err != nil {
			return err
		}
	}
	return nil
}

// Message returns the localized text for code, falling back to the generic internal error text.
func Message(translator ut.Translator, code string) string {
	if translator != nil {
		if s, err := translator.T(code); err == nil {
			return s
		}
	}
	if s, ok := messages[code]; ok {
		return s
	}
	return messages[CodeInternalError]
}
