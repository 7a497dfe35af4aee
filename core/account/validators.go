package account

import (
	"bufio"
	"bytes"
	_ "embed"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/trezcool/madrasa/core"
)

//go:embed assets/common-passwords.txt
var commonPasswordsTxt []byte

var (
	validRoleTag  = "validrole"
	validRoleText = "الدور غير صالح"

	// password policy
	pwdMinLen     = 6
	pwdStrict     = false
	pwdMinLenTag  = "pwdminlen"
	pwdMinLenText = "يجب أن تحتوي كلمة المرور على %d أحرف على الأقل"

	pwdNoSpaceTag  = "pwdnospace"
	pwdNoSpaceText = "يجب ألا تحتوي كلمة المرور على مسافات"

	pwdNotAllNumTag  = "pwdnotallnum"
	pwdNotAllNumText = "لا يمكن أن تتكون كلمة المرور من أرقام فقط"

	pwdComplexityTag  = "pwdcplx"
	pwdComplexityText = "يجب أن تحتوي كلمة المرور على حرف كبير وحرف صغير ورقم ورمز خاص على الأقل"
	specialRegex      = regexp.MustCompile("[^A-Za-z0-9]")

	pwdMaxSim      = .7
	pwdAttrSimTag  = "pwdtoosim"
	pwdAttrSimText = "كلمة المرور مشابهة جداً لبيانات الحساب"

	pwdNoCommonTag  = "pwdnocommon"
	pwdNoCommonText = "كلمة المرور شائعة جداً"
	commonPasswords = loadCommonPasswords()
)

// passwordCandidate carries what the policy compares a new password against.
type passwordCandidate struct {
	Password    string `json:"newPassword"`
	Email       string `json:"-"`
	DisplayName string `json:"-"`
}

// InitValidators registers the account validations and applies the password policy from conf.
func InitValidators(validate *validator.Validate, translator ut.Translator, conf core.PasswordConfig) {
	if conf.MinLength > 0 {
		pwdMinLen = conf.MinLength
	}
	pwdStrict = conf.Strict

	_ = validate.RegisterValidation(validRoleTag, validRoleValidation)
	core.RegisterCustomTranslation(validate, translator, validRoleTag, validRoleText)

	validate.RegisterStructValidation(passwordStructValidation, passwordCandidate{})
	core.RegisterCustomTranslation(validate, translator, pwdMinLenTag, fmt.Sprintf(pwdMinLenText, pwdMinLen), true)
	core.RegisterCustomTranslation(validate, translator, pwdNoSpaceTag, pwdNoSpaceText)
	core.RegisterCustomTranslation(validate, translator, pwdNotAllNumTag, pwdNotAllNumText)
	core.RegisterCustomTranslation(validate, translator, pwdComplexityTag, pwdComplexityText)
	core.RegisterCustomTranslation(validate, translator, pwdAttrSimTag, pwdAttrSimText)
	core.RegisterCustomTranslation(validate, translator, pwdNoCommonTag, pwdNoCommonText)
}

func loadCommonPasswords() []string {
	pwds := make([]string, 0, 64)
	scanner := bufio.NewScanner(bytes.NewReader(commonPasswordsTxt))
	for scanner.Scan() {
		if pwd := strings.TrimSpace(scanner.Text()); pwd != "" {
			pwds = append(pwds, strings.ToLower(pwd))
		}
	}
	sort.Strings(pwds)
	return pwds
}

// Custom Validators

func validRoleValidation(fl validator.FieldLevel) bool {
	if role, ok := fl.Field().Interface().(Role); ok {
		return role.Valid()
	}
	return false
}

func passwordStructValidation(sl validator.StructLevel) {
	if pc, ok := sl.Current().Interface().(passwordCandidate); ok {
		validatePassword(pc.Password, pc.DisplayName, pc.Email, sl)
	}
}

// validatePassword applies the password policy to provided password:
// - minLen (configurable)
// - no whitespace
// - no common password
// and, in strict mode:
// - no all numeric
// - complexity: 1 upper, 1 lower, 1 digit, 1 special
// - no account attrs similarity
func validatePassword(pwd, name, email string, sl validator.StructLevel) {
	reportErr := func(tag string) {
		sl.ReportError(pwd, "newPassword", "Password", tag, "")
	}

	var (
		digitCount                             int
		hasUpper, hasLower, hasDig, hasSpecial bool
	)

	pwdLen := utf8.RuneCountInString(pwd)
	if pwdLen < pwdMinLen {
		reportErr(pwdMinLenTag)
		return
	}
	for _, char := range pwd {
		if unicode.IsSpace(char) {
			reportErr(pwdNoSpaceTag)
			return
		}
		if unicode.IsDigit(char) {
			digitCount++
		}
		if !hasUpper && unicode.IsUpper(char) {
			hasUpper = true
		}
		if !hasLower && unicode.IsLower(char) {
			hasLower = true
		}
	}

	lpwd := strings.ToLower(pwd)
	if idx := sort.SearchStrings(commonPasswords, lpwd); idx < len(commonPasswords) {
		if match := commonPasswords[idx]; lpwd == match {
			reportErr(pwdNoCommonTag)
			return
		}
	}

	if !pwdStrict {
		return
	}

	if digitCount == pwdLen {
		reportErr(pwdNotAllNumTag)
		return
	}

	hasDig = digitCount > 0
	hasSpecial = specialRegex.MatchString(pwd)
	if !(hasUpper && hasLower && hasDig && hasSpecial) {
		reportErr(pwdComplexityTag)
		return
	}

	getRatio := func(pass, attr string) float64 {
		if attr == "" {
			return 0
		}
		return difflib.NewMatcher(strings.Split(pass, ""), strings.Split(attr, "")).QuickRatio()
	}
	localPart := strings.SplitN(email, "@", 2)[0]
	if getRatio(lpwd, strings.ToLower(name)) >= pwdMaxSim ||
		getRatio(lpwd, localPart) >= pwdMaxSim ||
		getRatio(lpwd, email) >= pwdMaxSim {
		reportErr(pwdAttrSimTag)
		return
	}
}
