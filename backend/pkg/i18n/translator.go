package i18n

import (
	"embed"
	"strings"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"
	"golang.org/x/text/language"
)

//go:embed locales/active.*.toml
var localeFS embed.FS

// 面向访客的提示语 ID
const (
	MsgRSVPConfirmedAttending = "RSVPConfirmedAttending"
	MsgRSVPConfirmedDeclined  = "RSVPConfirmedDeclined"
	MsgRSVPUpdated            = "RSVPUpdated"
	MsgInvitationGreeting     = "InvitationGreeting"
)

// Translator go-i18n Bundle 的薄封装
type Translator struct {
	bundle          *i18n.Bundle
	defaultLanguage language.Tag
	logger          *zap.Logger
}

// NewTranslator 加载内嵌的 active.*.toml，defaultLocale 解析失败时退回中文
func NewTranslator(defaultLocale string, logger *zap.Logger) *Translator {
	tag, err := language.Parse(defaultLocale)
	if err != nil {
		tag = language.Chinese
	}
	bundle := i18n.NewBundle(tag)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	for _, file := range []string{"locales/active.zh.toml", "locales/active.en.toml"} {
		if _, err := bundle.LoadMessageFileFS(localeFS, file); err != nil {
			logger.Warn("加载翻译文件失败", zap.String("file", file), zap.Error(err))
		}
	}

	return &Translator{bundle: bundle, defaultLanguage: tag, logger: logger}
}

// T 按 locale 渲染消息；缺失时回退默认语言，最终回退为消息 ID
func (t *Translator) T(locale, key string, data map[string]any) string {
	if key == "" {
		return ""
	}

	languages := []string{}
	if locale != "" {
		languages = append(languages, locale)
	}
	languages = append(languages, t.defaultLanguage.String())

	localizer := i18n.NewLocalizer(t.bundle, languages...)
	msg, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    key,
		TemplateData: data,
	})
	if err != nil {
		t.logger.Debug("翻译缺失", zap.String("key", key), zap.Strings("locales", languages), zap.Error(err))
		return key
	}
	return msg
}

// ParseAcceptLanguage 取 Accept-Language 中权重最高的基础语言，如 "en-US,en;q=0.9" → "en"
func ParseAcceptLanguage(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return ""
	}
	base, _ := tags[0].Base()
	return base.String()
}
