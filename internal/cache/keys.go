package cache

import "time"

const (
	CategoryIDKeyPrefix   = "category:id:%d"
	CategoryNameKeyPrefix = "category:name:%s"
	TagIDKeyPrefix        = "tag:id:%d"
	TagNameKeyPrefix      = "tag:name:%s"
)

const (
	CategoryTTL = 10 * time.Minute
	TagTTL      = 10 * time.Minute
)

func CategoryIDKey(id uint) string {
	return keyf(CategoryIDKeyPrefix, id)
}

func CategoryNameKey(name string) string {
	return keyf(CategoryNameKeyPrefix, name)
}

func TagIDKey(id uint) string {
	return keyf(TagIDKeyPrefix, id)
}

func TagNameKey(name string) string {
	return keyf(TagNameKeyPrefix, name)
}
