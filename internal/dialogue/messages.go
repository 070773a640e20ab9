package dialogue

import (
	"fmt"
	"strings"
	"unicode"
)

type msgKey int

const (
	msgHelp msgKey = iota
	msgStartRegistration
	msgAskFirstName
	msgAskLastName
	msgAskPassword
	msgAskPhone
	msgAskCountry
	msgAskRole
	msgAskCompany
	msgAskSpecialization
	msgAskPackage
	msgAskConfirm
	msgInvalidEmail
	msgEmailTaken
	msgNameTooShort
	msgPasswordTooShort
	msgInvalidCountry
	msgInvalidRole
	msgCompanyTooShort
	msgInvalidSpecialization
	msgInvalidPackage
	msgRegistered
	msgRegisteredExhibitor
	msgRegistrationCancelled
	msgAskStatusEmail
	msgStatusNotFound
	msgStatusNotExhibitor
	msgStatusActive
	msgStatusPending
	msgCancelled
	msgStartDraft
	msgAskSubject
	msgAskNewSubject
	msgSubjectLength
	msgDraftPreview
	msgDraftSaved
	msgDraftCancelled
	msgDraftBody
)

var catalog = map[Lang]map[msgKey]string{
	LangAR: {
		msgHelp:                  "يمكنني مساعدتك في التسجيل كعارض أو زائر، أو في التحقق من حالة حسابك، أو في كتابة رسالة بريدية لشركتك. اكتب \"تسجيل\" أو \"حالة حسابي\" أو \"رسالة\".",
		msgStartRegistration:     "حسناً! لنبدأ التسجيل. ما هو عنوان بريدك الإلكتروني؟",
		msgAskFirstName:          "ما هو اسمك الأول؟",
		msgAskLastName:           "ما هو اسمك الأخير؟",
		msgAskPassword:           "اختر كلمة مرور آمنة (6 أحرف على الأقل):",
		msgAskPhone:              "ما هو رقم هاتفك؟ (اختياري - اكتب تخطي للتجاوز)",
		msgAskCountry:            "ما هي دولتك؟",
		msgAskRole:               "هل تريد التسجيل كـ: (اكتب: عارض أو مستخدم عادي)",
		msgAskCompany:            "رائع! الآن سأطلب منك معلومات الشركة.\n\nما هو اسم شركتك؟",
		msgAskSpecialization:     "ممتاز! الآن ما هو تخصص شركتك؟\n\n%s\n\nاكتب رقم التخصص:",
		msgAskPackage:            "ممتاز! الآن ما هي الباقة المفضلة لديك؟\n\n%s\n\nاكتب رقم الباقة:",
		msgAskConfirm:            "%s\n\nهل تريد إكمال التسجيل بهذه البيانات؟ (نعم/لا)",
		msgInvalidEmail:          "البريد الإلكتروني غير صحيح. يرجى إدخال بريد صحيح:",
		msgEmailTaken:            "هذا البريد الإلكتروني مسجل بالفعل!",
		msgNameTooShort:          "الاسم قصير جداً. حاول مرة أخرى:",
		msgPasswordTooShort:      "كلمة المرور قصيرة جداً (6 أحرف على الأقل):",
		msgInvalidCountry:        "الدولة غير صحيحة. حاول مرة أخرى:",
		msgInvalidRole:           "الخيار غير صحيح. اكتب: عارض أو مستخدم عادي",
		msgCompanyTooShort:       "اسم الشركة قصير جداً. حاول مرة أخرى:",
		msgInvalidSpecialization: "التخصص غير صحيح. الرجاء الاختيار من القائمة:\n\n%s\n\nاكتب رقم التخصص:",
		msgInvalidPackage:        "الباقة غير صحيحة. الرجاء الاختيار من القائمة:\n\n%s\n\nاكتب رقم الباقة:",
		msgRegistered:            "تم إرسال طلب التسجيل بنجاح! يمكنك تسجيل الدخول بعد مراجعة الطلب.",
		msgRegisteredExhibitor:   "تم إرسال طلب التسجيل كعارض بنجاح! سيتم تفعيل حسابك بعد موافقة الإدارة.",
		msgRegistrationCancelled: "تم إلغاء عملية التسجيل. كيف يمكنني مساعدتك الآن؟",
		msgAskStatusEmail:        "لأتحقق من حالة حسابك، أحتاج إلى بريدك الإلكتروني. ما هو بريدك؟",
		msgStatusNotFound:        "لم يتم العثور على حساب بهذا البريد الإلكتروني.",
		msgStatusNotExhibitor:    "هذا البريد الإلكتروني ليس خاص بعارض!",
		msgStatusActive:          "حسابك مفعل ويمكنك تسجيل الدخول الآن.",
		msgStatusPending:         "حسابك قيد المراجعة وبانتظار موافقة الإدارة.",
		msgCancelled:             "تم الإلغاء. كيف يمكنني مساعدتك؟",
		msgStartDraft:            "حسناً! لإنشاء رسالة بريدية للشركة أحتاج إلى بريدك الإلكتروني المسجل. ما هو بريدك؟",
		msgAskSubject:            "ممتاز! الآن ما هو موضوع الرسالة؟",
		msgAskNewSubject:         "تمام! ما هو الموضوع الجديد للرسالة؟",
		msgSubjectLength:         "يجب أن يكون الموضوع بين 3 و200 حرف. حاول مرة أخرى:",
		msgDraftPreview:          "إلى: %s (%s)\nالموضوع: %s\n\n%s\n\nهل تريد قبول هذه الرسالة؟ (نعم/لا)\nأو اكتب \"عدل\" لتغيير الموضوع وإعادة الكتابة.",
		msgDraftSaved:            "تم حفظ مسودة الرسالة برقم %d.\n\nإلى: %s (%s)\nالموضوع: %s\n\n%s",
		msgDraftCancelled:        "تم إلغاء عملية إنشاء الرسالة. كيف يمكنني مساعدتك؟",
		msgDraftBody:             "السلام عليكم ورحمة الله وبركاته\n\nتحية طيبة إلى شركة %s،\n\nفيما يتعلق بـ %s، نود التواصل معكم بخصوص هذا الموضوع.\n\nنتطلع إلى تعاون مثمر معكم.\n\nمع أطيب التحيات",
	},
	LangEN: {
		msgHelp:                  "I can help you register as an exhibitor or visitor, check your account status, or draft an email for your company. Type \"register\", \"account status\" or \"email\".",
		msgStartRegistration:     "Great! Let's get you registered. What is your email address?",
		msgAskFirstName:          "What is your first name?",
		msgAskLastName:           "What is your last name?",
		msgAskPassword:           "Choose a secure password (at least 6 characters):",
		msgAskPhone:              "What is your phone number? (Optional - type skip to leave it out)",
		msgAskCountry:            "What is your country?",
		msgAskRole:               "Do you want to register as: (type: exhibitor or user)",
		msgAskCompany:            "Great! Now I need your company information.\n\nWhat is your company name?",
		msgAskSpecialization:     "Excellent! What is your company specialization?\n\n%s\n\nType the specialization number:",
		msgAskPackage:            "Great! Which package would you like?\n\n%s\n\nType the package number:",
		msgAskConfirm:            "%s\n\nDo you want to complete registration with this data? (yes/no)",
		msgInvalidEmail:          "Invalid email. Please enter a valid email:",
		msgEmailTaken:            "This email is already registered!",
		msgNameTooShort:          "Name is too short. Try again:",
		msgPasswordTooShort:      "Password is too short (at least 6 characters):",
		msgInvalidCountry:        "Invalid country. Try again:",
		msgInvalidRole:           "Invalid option. Type: exhibitor or user",
		msgCompanyTooShort:       "Company name is too short. Try again:",
		msgInvalidSpecialization: "Invalid specialization. Please select from the list:\n\n%s\n\nType the number:",
		msgInvalidPackage:        "Invalid package. Please select from the list:\n\n%s\n\nType the number:",
		msgRegistered:            "Your registration request was submitted! You can sign in once it has been reviewed.",
		msgRegisteredExhibitor:   "Your exhibitor registration request was submitted! Your account will be activated after admin approval.",
		msgRegistrationCancelled: "Registration cancelled. How can I help you now?",
		msgAskStatusEmail:        "To check your account status, I need your email address. What is your email?",
		msgStatusNotFound:        "No account was found for this email.",
		msgStatusNotExhibitor:    "This email is not registered as an exhibitor!",
		msgStatusActive:          "Your account is active. You can sign in now.",
		msgStatusPending:         "Your account is under review and awaiting admin approval.",
		msgCancelled:             "Cancelled. How can I help you?",
		msgStartDraft:            "Great! To draft a company email I need your registered email address. What is your email?",
		msgAskSubject:            "Great! What is the subject of the email?",
		msgAskNewSubject:         "What is the new subject for the email?",
		msgSubjectLength:         "The subject must be 3 to 200 characters. Try again:",
		msgDraftPreview:          "To: %s (%s)\nSubject: %s\n\n%s\n\nDo you want to keep this email? (yes/no)\nOr type \"edit\" to change the subject and write it again.",
		msgDraftSaved:            "Email draft #%d saved.\n\nTo: %s (%s)\nSubject: %s\n\n%s",
		msgDraftCancelled:        "Email creation cancelled. How can I help you?",
		msgDraftBody:             "Dear %s,\n\nWe hope this message finds you well.\n\nRegarding %s, we would like to get in touch with you about this matter.\n\nWe look forward to a fruitful cooperation.\n\nBest regards",
	},
}

func text(lang Lang, key msgKey, args ...any) string {
	m, ok := catalog[lang]
	if !ok {
		m = catalog[LangAR]
	}
	if len(args) == 0 {
		return m[key]
	}
	return fmt.Sprintf(m[key], args...)
}

// DetectLang picks Arabic when the message has at least as many Arabic
// letters as Latin ones, English otherwise.
func DetectLang(s string) Lang {
	var ar, en int
	for _, r := range s {
		switch {
		case unicode.Is(unicode.Arabic, r):
			ar++
		case r < unicode.MaxASCII && unicode.IsLetter(r):
			en++
		}
	}
	if en > ar {
		return LangEN
	}
	return LangAR
}

var (
	registerWords = []string{"register", "sign up", "signup", "create account", "new account", "join",
		"تسجيل", "حساب جديد", "انشاء حساب", "إنشاء حساب", "عضو جديد", "اريد حساب", "أريد حساب"}
	statusWords = []string{"status", "approval", "approved", "activate", "activated",
		"حالة", "موافقة", "تفعيل", "حسابي", "الموافقة"}
	draftWords = []string{"email", "message", "compose", "draft",
		"رسالة", "بريد", "تواصل"}
	skipWords      = []string{"", "skip", "no", "تخطي", "لا"}
	confirmWords   = []string{"yes", "نعم", "ok", "sure", "yes please", "حسناً", "حسنا", "نعم اكمل", "نعم تمام"}
	abortWords     = []string{"cancel", "stop", "إلغاء", "الغاء"}
	acceptWords    = []string{"yes", "نعم", "ok", "sure", "yes please", "accept", "حسناً", "حسنا", "نعم اكمل", "تمام"}
	editWords      = []string{"edit", "modify", "change", "redo", "عدل", "عدّل", "تعديل", "غير"}
	exhibitorWords = []string{"exhibitor", "عارض"}
	userWords      = []string{"user", "visitor", "مستخدم", "مستخدم عادي", "زائر"}
)

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

