package room

import (
	"crypto/rand"

	"github.com/google/uuid"
)

// 房间码字符集，去掉了容易混淆的 0/O/1/I
const CODE_CHARSET = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// 房间码长度
const CODE_LENGTH = 6

// GenerateCode 生成一个可口播的短房间码
// 唯一性由调用方通过插入冲突重试保证
func GenerateCode() string {
	buf := make([]byte, CODE_LENGTH)

	if _, err := rand.Read(buf); err != nil {
		panic("Failed to read random bytes: " + err.Error())
	}

	// 字符集长度是 32，能整除 256，取模不会引入偏差
	for i, b := range buf {
		buf[i] = CODE_CHARSET[int(b)%len(CODE_CHARSET)]
	}

	return string(buf)
}

// GenID 生成全局唯一 ID，用于牌面实例等内部标识
func GenID() string {
	id, err := uuid.NewV7()
	if err != nil {
		panic("Failed to generate UUID: " + err.Error())
	}

	return id.String()
}

// ShortID 生成短随机 ID，用于玩家的展示标识
func ShortID() string {
	return uuid.New().String()[:8]
}
