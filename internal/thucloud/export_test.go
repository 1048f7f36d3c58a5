package thucloud

import "github.com/handiism/thucloud-downloader/internal/thucloud/dto"

type (
	dtoList   = dto.DirentList
	dtoDirent = dto.Dirent
)
