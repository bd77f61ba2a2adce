package dto

type GenerateImageRequest struct {
	Prompt         string `json:"prompt" validate:"required"`
	NumberOfImages int    `json:"number_of_images" validate:"omitempty,min=1,max=8"`
	NegativePrompt string `json:"negative_prompt"`
}

type EditImageRequest struct {
	Prompt         string `json:"prompt" validate:"required"`
	BaseImageName  string `json:"base_image_name" validate:"required"`
	MaskImageName  string `json:"mask_image_name"`
	NumberOfImages int    `json:"number_of_images" validate:"omitempty,min=1,max=8"`
	NegativePrompt string `json:"negative_prompt"`
}

type DetectCategoriesRequest struct {
	ImageNames []string `json:"image_names" validate:"required,min=1"`
}

type TitleDescriptionRequest struct {
	Categories []string `json:"categories" validate:"required,min=1"`
	Context    string   `json:"context"`
}

type UploadResponse struct {
	Name string `json:"name"`
	Path string `json:"path"`
	URL  string `json:"url"`
}
