package conversation

// Replies shown to the operator while a product is being entered.
const (
	PromptName        = "Введите название товара:"
	PromptDescription = "Введите описание товара:"
	PromptCategory    = "Введите категорию товара:"
	PromptPrice       = "Введите цену товара:"
	PromptPhotos      = "Отправьте фото товара (по одному). Когда закончите — напишите 'Готово'"
	PromptMorePhotos  = "Фото добавлено. Ещё? Или напиши 'Готово'"

	RepromptName       = "Название не может быть пустым. Введите название товара:"
	RepromptText       = "Нужен текст, а не фото."
	RepromptPrice      = "Введите цену числом!"
	RepromptPhoto      = "Отправьте фото или напишите 'Готово'."
	RepromptNoPhotos   = "Добавьте хотя бы одно фото, затем напишите 'Готово'."
	RepromptPhotoRetry = "Не удалось получить фото, отправьте его ещё раз."

	ReplySaved      = "Товар добавлен!"
	ReplySaveFailed = "Ошибка сохранения товара. Попробуйте добавить его заново."
	ReplyCancelled  = "Добавление товара отменено."
)
