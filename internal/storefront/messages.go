package storefront

import (
	"github.com/m3rciful/shopbot/core/telegram/keyboard"

	tele "gopkg.in/telebot.v4"
)

// Callback keys of the operator menu.
const (
	CallbackAddProduct   = "add_product"
	CallbackListProducts = "list_products"
	CallbackBroadcast    = "broadcast"
)

const (
	ReplyNoProducts        = "Товары временно отсутствуют."
	ReplyFoundProducts     = "Найдено товаров: %d"
	ReplyPhotosFailed      = "Не удалось отправить фото: %d."
	ReplyCatalogFailed     = "Не удалось загрузить каталог. Попробуйте позже."
	ReplyEnterPassword     = "Введите пароль:"
	ReplyAdminMenu         = "Админ-панель:"
	ReplyDebugEmpty        = "В базе нет ни одного товара."
	ReplyDebugHeader       = "Список товаров:"
	ReplyBroadcastPrompt   = "Введите текст рассылки:"
	ReplyBroadcastBusy     = "Рассылка уже ожидает текст."
	ReplyBroadcastEmpty    = "Текст рассылки не может быть пустым."
	ReplyBroadcastDone     = "Рассылка завершена."
	ReplyBroadcastStats    = "Доставлено: %d из %d."
	ReplyBroadcastFailed   = "Не удалось получить список получателей."
	ReplyCancelled         = "Действие отменено."
	ReplyNothingToCancel   = "Нечего отменять."
	ReplyUnknownCommand    = "Неизвестная команда. Нажмите /start, чтобы открыть каталог."
	ReplyUnsupportedAction = "Действие недоступно"

	labelCategory = "Категория: "
	labelPrice    = "Цена: "

	captionNameLimit     = 256
	captionCategoryLimit = 64
)

// AdminMenu is the inline keyboard shown to an operator.
func AdminMenu() *tele.ReplyMarkup {
	return keyboard.InlineButtons([]keyboard.InlineBtn{
		{Text: "➕ Добавить товар", Unique: CallbackAddProduct},
		{Text: "📦 Все товары", Unique: CallbackListProducts},
		{Text: "📤 Рассылка", Unique: CallbackBroadcast},
	})
}
